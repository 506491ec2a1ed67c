// Package protocol defines the worker message protocol: requests tagged by
// function and responses tagged by type.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/cardex/internal/domain/card"
)

// Function tags a request.
type Function string

// Request functions.
const (
	FindCard    Function = "findCard"
	SearchCards Function = "searchCards"
	LoadDB      Function = "loadDB"
	Abort       Function = "abort"
)

// IsValid checks if the function is one of the supported values.
func (f Function) IsValid() bool {
	switch f {
	case FindCard, SearchCards, LoadDB, Abort:
		return true
	}
	return false
}

// Request is an inbound worker message. ID is chosen by the caller and
// correlates every response to the request.
type Request struct {
	Function Function `json:"function"`
	ID       int64    `json:"id"`
	Name     string   `json:"name,omitempty"`
	Query    string   `json:"query,omitempty"`
	Skip     int      `json:"skip,omitempty"`
	Take     int      `json:"take,omitempty"`
	Sort     string   `json:"sort,omitempty"`
	Order    string   `json:"order,omitempty"`
}

// Type tags a response.
type Type string

// Response types. Function, Abort and Error are terminal: exactly one of them
// is sent per request id.
const (
	TypeFunction Type = "function"
	TypePartial  Type = "partial"
	TypeAbort    Type = "abort"
	TypeError    Type = "error"
)

// Phase names the load stage a partial response reports on.
type Phase string

// Load phases.
const (
	PhaseNetwork Phase = "loadNetwork"
	PhaseDB      Phase = "loadDB"
)

// Response is an outbound worker message.
type Response struct {
	Type    Type
	ID      int64
	Value   any
	Phase   Phase
	Current int
	Total   int
	Error   string
}

// Result is the terminal response carrying a function's return value.
func Result(id int64, value any) Response {
	return Response{Type: TypeFunction, ID: id, Value: value}
}

// Partial reports load progress.
func Partial(phase Phase, current, total int) Response {
	return Response{Type: TypePartial, Phase: phase, Current: current, Total: total}
}

// Aborted is the terminal response for a cancelled request.
func Aborted(id int64) Response {
	return Response{Type: TypeAbort, ID: id}
}

// Failed is the terminal response for a request that could not be executed.
func Failed(id int64, err error) Response {
	return Response{Type: TypeError, ID: id, Error: err.Error()}
}

// IsTerminal reports whether the response ends its request.
func (r Response) IsTerminal() bool {
	return r.Type == TypeFunction || r.Type == TypeAbort || r.Type == TypeError
}

// SearchValue is the value of a searchCards result. Skip and Take echo the
// page actually served: Take is clamped to request.MaxTake and defaults to
// request.DefaultTake, so a client must not assume the take it sent.
type SearchValue struct {
	Total   int          `json:"total"`
	Skip    int          `json:"skip"`
	Take    int          `json:"take"`
	Results []*card.Card `json:"results"`
}

// LoadValue is the value of a loadDB result.
type LoadValue struct {
	Cards   int  `json:"cards"`
	Chunks  int  `json:"chunks"`
	Offline bool `json:"offline"`
}

type functionWire struct {
	Type  Type  `json:"type"`
	ID    int64 `json:"id"`
	Value any   `json:"value"`
}

type partialWire struct {
	Type    Type  `json:"type"`
	Name    Phase `json:"name"`
	Current int   `json:"current"`
	Total   int   `json:"total"`
}

type abortWire struct {
	Type Type  `json:"type"`
	ID   int64 `json:"id"`
}

type errorWire struct {
	Type  Type   `json:"type"`
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// MarshalJSON renders only the fields belonging to the response type.
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case TypeFunction:
		return json.Marshal(functionWire{Type: r.Type, ID: r.ID, Value: r.Value})
	case TypePartial:
		return json.Marshal(partialWire{Type: r.Type, Name: r.Phase, Current: r.Current, Total: r.Total})
	case TypeAbort:
		return json.Marshal(abortWire{Type: r.Type, ID: r.ID})
	case TypeError:
		return json.Marshal(errorWire{Type: r.Type, ID: r.ID, Error: r.Error})
	default:
		return nil, fmt.Errorf("unknown response type %q", r.Type)
	}
}

// UnmarshalJSON decodes any response type. Value is left as json.RawMessage.
func (r *Response) UnmarshalJSON(data []byte) error {
	var w struct {
		Type    Type            `json:"type"`
		ID      int64           `json:"id"`
		Value   json.RawMessage `json:"value"`
		Name    Phase           `json:"name"`
		Current int             `json:"current"`
		Total   int             `json:"total"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case TypeFunction, TypePartial, TypeAbort, TypeError:
	default:
		return fmt.Errorf("unknown response type %q", w.Type)
	}
	*r = Response{
		Type: w.Type, ID: w.ID, Phase: w.Name,
		Current: w.Current, Total: w.Total, Error: w.Error,
	}
	if w.Value != nil {
		r.Value = w.Value
	}
	return nil
}
