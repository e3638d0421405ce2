// Package rpc carries storage requests from callers to the goroutine that owns
// the storage engine. Requests and responses are plain value envelopes matched
// by correlation id.
package rpc

import "github.com/MrSnakeDoc/bookmarker/internal/storage"

// Action is the kind of a Request.
type Action string

const (
	ActionInitialize         Action = "initialize"
	ActionInitializeDatabase Action = "initializeDatabase"
	ActionExecute            Action = "execute"
	ActionFlush              Action = "flush"
	ActionClose              Action = "close"
)

// ResponseType is the kind of a Response.
type ResponseType string

const (
	TypeInitialized   ResponseType = "initialized"
	TypeDBInitialized ResponseType = "dbInitialized"
	TypeQueryResult   ResponseType = "queryResult"
	TypeFlushed       ResponseType = "flushed"
	TypeError         ResponseType = "error"
	TypeClosed        ResponseType = "closed"
)

// Request is sent from the caller to the worker.
type Request struct {
	ID     string
	Action Action
	DBName string // initializeDatabase
	SQL    string // execute
	Params []any  // execute
}

// Response answers exactly one Request, carrying its ID.
type Response struct {
	ID      string
	Type    ResponseType
	Rows    []storage.Row // queryResult
	Backend string        // dbInitialized
	Error   string        // error
}
