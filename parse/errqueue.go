package parse

import (
	"strconv"
	"strings"
)

// ErrorEntry parses one SYSTem:ERRor? reply of the form
//
//	-113,"Undefined header"
//
// Code zero means the queue is empty.
func ErrorEntry(raw string) (int, string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, "", &MalformedError{Raw: raw, Reason: "empty error entry"}
	}
	code, message, found := strings.Cut(trimmed, ",")
	if !found {
		// Some instruments reply with a bare code.
		message = ""
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(code, "+")))
	if err != nil {
		return 0, "", &MalformedError{Raw: raw, Reason: "error code is not an integer"}
	}
	return n, strings.Trim(strings.TrimSpace(message), `"`), nil
}
