package orchestrator

import (
	"strings"
	"unicode"

	"github.com/msto63/englishquery/pkg/core/apperr"
)

var readOnlyKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"WITH":     true,
}

// ReadOnlyGuard admits single read-only statements
type ReadOnlyGuard struct{}

// Check rejects statements that could modify data or that contain more
// than one statement.
func (ReadOnlyGuard) Check(sql string) error {
	stmt := strings.TrimSpace(sql)
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	if stmt == "" {
		return nil
	}

	if containsStatementBreak(stmt) {
		return apperr.New(apperr.CodeRejectedStatement, "multiple statements are not allowed").WithOp("guard")
	}

	words := strings.FieldsFunc(stmt, func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	if len(words) == 0 {
		return apperr.New(apperr.CodeRejectedStatement, "statement has no keyword").WithOp("guard")
	}
	keyword := strings.ToUpper(words[0])
	if !readOnlyKeywords[keyword] {
		return apperr.New(apperr.CodeRejectedStatement, "only read-only statements are allowed, got "+keyword).WithOp("guard")
	}
	return nil
}

// containsStatementBreak reports a semicolon outside quotes
func containsStatementBreak(stmt string) bool {
	var quote rune
	escaped := false
	for _, r := range stmt {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != 0:
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == ';':
			return true
		}
	}
	return false
}
