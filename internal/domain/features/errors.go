package features

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema is the sentinel kind of every schema failure.
var ErrSchema = errors.New("schema error")

// SchemaError lists every required column absent from an input source.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: missing required columns: [%s]", strings.Join(e.Missing, ", "))
}

// Is lets errors.Is(err, ErrSchema) match.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
