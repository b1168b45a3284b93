package gorequest

import (
	"net/url"
	"sort"

	"github.com/elliothayes/gorequest/pkg/codec"
	"github.com/elliothayes/gorequest/pkg/errors"
)

// encodeBody implements the body encoding priority: json > data > none.
// data may be a map[string]string (form-urlencoded), a string (UTF-8
// bytes), or a []byte (sent verbatim).
func encodeBody(opts *RequestOptions) (body []byte, contentType string, err error) {
	if opts.JSON != nil {
		b, err := codec.Active.Marshal(opts.JSON)
		if err != nil {
			return nil, "", errors.NewValidationError("failed to encode JSON body: " + err.Error())
		}
		return b, "application/json", nil
	}

	switch v := opts.Data.(type) {
	case nil:
		return nil, "", nil
	case map[string]string:
		values := url.Values{}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			values.Set(k, v[k])
		}
		return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
	case string:
		return []byte(v), "", nil
	case []byte:
		return v, "", nil
	default:
		return nil, "", errors.NewValidationError("unsupported data type for request body")
	}
}
