package protocol

import "strings"

// Param is a single ordered key/value pair parsed from a request line. A
// bare key with no ':' parses to an empty Value.
type Param struct {
	Key   string
	Value string
}

// Action is a parsed request or response line: a name plus an ordered set
// of parameters.
type Action struct {
	Name   string
	Params []Param
}

// FromLine splits a line into an action name and its parameters. The
// substring before the first comma is the (trimmed) action name; the
// remainder is split on commas into parameter tokens, each split once on
// ':' into a trimmed (key, value) pair.
func FromLine(line string) Action {
	parts := strings.Split(line, ",")
	action := Action{Name: strings.TrimSpace(parts[0])}
	for _, raw := range parts[1:] {
		key, value, hasValue := strings.Cut(raw, ":")
		key = strings.TrimSpace(key)
		if hasValue {
			value = strings.TrimSpace(value)
		} else {
			value = ""
		}
		action.Params = append(action.Params, Param{Key: key, Value: value})
	}
	return action
}

// IsValid holds iff the action name is non-empty and every parameter key
// is non-empty.
func (a Action) IsValid() bool {
	if a.Name == "" {
		return false
	}
	for _, p := range a.Params {
		if p.Key == "" {
			return false
		}
	}
	return true
}

// Get returns the value of the first parameter with the given key, and
// whether it was present at all.
func (a Action) Get(key string) (string, bool) {
	for _, p := range a.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// String renders the action in "Name,k:v,k:v" form, mainly for logging.
func (a Action) String() string {
	if len(a.Params) == 0 {
		return a.Name
	}
	var b strings.Builder
	b.WriteString(a.Name)
	for _, p := range a.Params {
		b.WriteByte(',')
		b.WriteString(p.Key)
		b.WriteByte(':')
		b.WriteString(p.Value)
	}
	return b.String()
}
