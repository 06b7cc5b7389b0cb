package source

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONArray decodes a top-level JSON array element by element.
// Expects input in the form [{...},{...}]; an empty stream yields nil.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) ([]T, error) {
	decoder := json.NewDecoder(r)

	// Expect opening bracket
	tok, err := decoder.Token()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "json: read opening token")
	}

	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return nil, eris.Errorf("json: expected '[', got %v", tok)
	}

	var out []T
	for decoder.More() {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "json: context cancelled")
		}

		var item T
		if err := decoder.Decode(&item); err != nil {
			return nil, eris.Wrapf(err, "json: decode element %d", len(out))
		}
		out = append(out, item)
	}

	// Consume closing bracket
	if _, err := decoder.Token(); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "json: read closing token")
	}
	return out, nil
}
