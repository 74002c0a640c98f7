package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/qrscan/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Identifiers cannot be bound as parameters, so they are whitelisted.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, describeEvent(event))
		}
	}

	return buf.String()
}

func describeEvent(ev TraceEvent) string {
	if ev.Type == EventAnswer {
		verb := "dismissed"
		if ev.Accepted != nil && *ev.Accepted {
			verb = "accepted"
		}
		return fmt.Sprintf("answer %s %q", verb, deref(ev.Payload))
	}
	cmds := make([]string, len(ev.Commands))
	for i, c := range ev.Commands {
		cmds[i] = c.String()
	}
	if ev.Payload == nil {
		return "miss -> " + strings.Join(cmds, ", ")
	}
	return fmt.Sprintf("frame %q -> %s", *ev.Payload, strings.Join(cmds, ", "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// assertCommandContains checks that the command appears at least once.
func assertCommandContains(result *Result, assertion Assertion) error {
	for _, c := range result.CommandStrings() {
		if c == assertion.Command {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertCommandContains,
		Expected: assertion.Command,
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

// assertCommandOrder checks that commands appear in the given order.
// Intervening commands are allowed; each expected command matches the first
// occurrence after the previous match.
func assertCommandOrder(result *Result, assertion Assertion) error {
	got := result.CommandStrings()
	pos := 0
	for _, want := range assertion.Commands {
		found := false
		for pos < len(got) {
			pos++
			if got[pos-1] == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertCommandOrder,
				Expected: fmt.Sprintf("commands in order: %v", assertion.Commands),
				Actual:   fmt.Sprintf("%s missing or out of order", want),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// assertCommandCount checks how many commands match kind or the exact command.
func assertCommandCount(result *Result, assertion Assertion) error {
	count := 0
	for _, c := range result.Commands() {
		if assertion.Kind != "" && string(c.Kind) != assertion.Kind {
			continue
		}
		if assertion.Command != "" && c.String() != assertion.Command {
			continue
		}
		count++
	}

	if count != assertion.Count {
		what := assertion.Kind
		if assertion.Command != "" {
			what = assertion.Command
		}
		return &AssertionError{
			Type:     AssertCommandCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFinalState checks the reconciler state after the last step.
func assertFinalState(result *Result, assertion Assertion) error {
	if assertion.LastPayload != nil {
		got := result.State.LastPayload
		if got == nil || *got != *assertion.LastPayload {
			actual := "(none)"
			if got != nil {
				actual = fmt.Sprintf("%q", *got)
			}
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("last_payload %q", *assertion.LastPayload),
				Actual:   "last_payload " + actual,
			}
		}
	}

	if assertion.Prompted != nil {
		got := result.State.Prompted
		if got == nil {
			got = []string{}
		}
		if !reflect.DeepEqual(got, assertion.Prompted) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("prompted %v", assertion.Prompted),
				Actual:   fmt.Sprintf("prompted %v", got),
			}
		}
	}
	return nil
}

// assertLogRow checks that exactly one row of a session-log table matches
// where, and that it carries the expected values (subset semantics).
// The query is always scoped to the scenario's session.
func assertLogRow(ctx context.Context, st *store.Store, sessionID string, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	where := map[string]interface{}{"session_id": sessionID}
	if assertion.Table == "sessions" {
		where = map[string]interface{}{"id": sessionID}
	}
	for k, v := range assertion.Where {
		where[k] = v
	}

	whereSQL, whereArgs, err := buildWhereClause(where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s", assertion.Table, whereSQL)
	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertLogRow,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertLogRow,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertLogRow,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertLogRow,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertLogRow,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are sorted
// for deterministic query text.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, where[key])
	}

	return strings.Join(clauses, " AND "), args, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares a YAML value with a value scanned from SQLite,
// which returns integers as int64, text as string (or []byte), and booleans
// as 0/1.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case int:
		actualInt, ok := actual.(int64)
		return ok && int64(exp) == actualInt
	case int64:
		actualInt, ok := actual.(int64)
		return ok && exp == actualInt
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		actualInt, ok := actual.(int64)
		return ok && exp == (actualInt != 0)
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides the session log for log_row assertions.
type AssertionContext struct {
	Store     *store.Store
	Ctx       context.Context
	SessionID string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCommandContains:
			err = assertCommandContains(result, assertion)
		case AssertCommandOrder:
			err = assertCommandOrder(result, assertion)
		case AssertCommandCount:
			err = assertCommandCount(result, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertLogRow:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: log_row requires a session log", i)
			} else {
				err = assertLogRow(actx.Ctx, actx.Store, actx.SessionID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
