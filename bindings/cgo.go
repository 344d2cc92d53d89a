// Package main builds the TableDB C shared library used by the Python client:
//
//	go build -buildmode=c-shared -o libtabledb.so ./bindings
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"unsafe"

	"github.com/nickyhof/TableDB"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/db"
	"github.com/nickyhof/TableDB/internal/config"
)

var errInvalidHandle = errors.New("invalid handle")

// handle is one open instance and the engine that serves its requests.
type handle struct {
	instance *TableDB.Instance
	engine   *db.Engine
}

var (
	handlesMu  sync.Mutex
	handles    = make(map[int]*handle)
	nextHandle = 1
)

// Response mirrors the server protocol.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

var bindingIdentity = core.Identity{
	Name:  "TableDB Python",
	Email: "python@tabledb.local",
}

func open(baseDir string) C.int {
	cfg, err := config.Load("", nil)
	if err != nil {
		return -1
	}
	cfg.Persistence.BaseDir = baseDir
	cfg.Persistence.GitURL = ""
	cfg.Schema = ""

	instance, err := TableDB.Open(context.Background(), cfg, nil)
	if err != nil {
		return -1
	}

	handlesMu.Lock()
	defer handlesMu.Unlock()

	id := nextHandle
	nextHandle++
	handles[id] = &handle{
		instance: instance,
		engine:   instance.Engine(bindingIdentity),
	}
	return C.int(id)
}

func lookup(id C.int) (*handle, bool) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	h, ok := handles[int(id)]
	return h, ok
}

//export tabledb_open_memory
func tabledb_open_memory() C.int {
	return open("")
}

//export tabledb_open_file
func tabledb_open_file(path *C.char) C.int {
	return open(C.GoString(path))
}

//export tabledb_close
func tabledb_close(id C.int) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	delete(handles, int(id))
}

//export tabledb_execute
func tabledb_execute(id C.int, request *C.char) *C.char {
	h, ok := lookup(id)
	if !ok {
		return makeErrorResponse(errInvalidHandle)
	}

	result, err := h.engine.ExecuteJSON(context.Background(), []byte(C.GoString(request)))
	if err != nil {
		return makeErrorResponse(err)
	}
	return makeResultResponse(result)
}

//export tabledb_snapshot
func tabledb_snapshot(id C.int, message *C.char) *C.char {
	h, ok := lookup(id)
	if !ok {
		return makeErrorResponse(errInvalidHandle)
	}

	result, err := h.engine.Execute(context.Background(), db.Request{Op: "snapshot", Message: C.GoString(message)})
	if err != nil {
		return makeErrorResponse(err)
	}
	return makeResultResponse(result)
}

//export tabledb_free
func tabledb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func makeResultResponse(result db.Result) *C.char {
	data, err := json.Marshal(result)
	if err != nil {
		return makeErrorResponse(err)
	}
	return encode(Response{
		Success: true,
		Type:    result.Type().String(),
		Result:  data,
	})
}

func makeErrorResponse(err error) *C.char {
	return encode(Response{Success: false, Error: err.Error()})
}

func encode(resp Response) *C.char {
	jsonData, _ := json.Marshal(resp)
	return C.CString(string(jsonData))
}

func main() {}
