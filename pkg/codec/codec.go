// Package codec abstracts JSON encode/decode behind a small interface so
// the marshaling backend can be swapped without touching callers, mirroring
// the accelerated-parser-when-available pattern the client this package
// descends from used.
package codec

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

// JSON is the marshal/unmarshal contract Response.JSON and JSON body
// encoding depend on.
type JSON interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type stdJSON struct{}

func (stdJSON) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (stdJSON) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// StdJSON is the portable, encoding/json-backed implementation.
var StdJSON JSON = stdJSON{}

var fastAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type fastJSON struct{}

func (fastJSON) Marshal(v interface{}) ([]byte, error)      { return fastAPI.Marshal(v) }
func (fastJSON) Unmarshal(data []byte, v interface{}) error { return fastAPI.Unmarshal(data, v) }

// FastJSON is the accelerated implementation, API-compatible with
// encoding/json's Marshal/Unmarshal semantics.
var FastJSON JSON = fastJSON{}

// Active is the backend used throughout the package; defaults to the
// accelerated implementation, falling back to StdJSON is a matter of
// reassigning this var (e.g. in a build that can't vendor jsoniter).
var Active JSON = FastJSON
