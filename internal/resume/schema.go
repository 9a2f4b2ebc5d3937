package resume

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"cvforge/internal/errors"
)

//go:embed record.schema.json
var recordSchema string

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
})

// Schema returns the JSON schema records are validated against.
func Schema() string {
	return recordSchema
}

// Validate checks a JSON document against the record schema.
func Validate(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidConfig, "record schema does not compile", err)
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, "document is not valid JSON", err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("schema validation failed: %s", strings.Join(msgs, "; ")), nil)
}

// Decode validates data and returns the normalized record it describes.
func Decode(data []byte) (Record, error) {
	if err := Validate(data); err != nil {
		return Record{}, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, errors.NewValidationError(errors.ErrCodeInvalidFormat, "cannot decode record", err)
	}
	return r.Normalize(), nil
}
