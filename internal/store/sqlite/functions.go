package sqlite

import (
	"database/sql/driver"
	"fmt"

	sqlitedriver "modernc.org/sqlite"

	"github.com/kaziapp/taggraph/internal/util"
)

// casefoldFunc exposes util.FoldCase to SQL. The built-in lower() only folds ASCII.
const casefoldFunc = "casefold"

func init() {
	sqlitedriver.MustRegisterDeterministicScalarFunction(casefoldFunc, 1, casefold)
}

func casefold(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return util.FoldCase(v), nil
	case []byte:
		return util.FoldCase(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", casefoldFunc, v)
	}
}
