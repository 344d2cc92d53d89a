// Package main provides the TableDB request server.
package main

import (
	"encoding/json"

	"github.com/nickyhof/TableDB/db"
)

// Response is the envelope of every server reply, one JSON object per line.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"` // result type, or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// AuthResponse is the result of a successful AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"` // seconds
}

func errorResponse(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

func resultResponse(result db.Result) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(err)
	}
	return Response{
		Success: true,
		Type:    result.Type().String(),
		Result:  data,
	}
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
