package indexes

import "fmt"

// Pragma is one tuning setting applied by OptimizeDatabase.
type Pragma struct {
	Name  string
	Value string
}

// Statement renders the pragma. Names and values only ever come from the
// fixed table below.
func (p Pragma) Statement() string {
	if p.Value == "" {
		return "PRAGMA " + p.Name
	}
	return fmt.Sprintf("PRAGMA %s=%s", p.Name, p.Value)
}

var pragmas = []Pragma{
	{Name: "journal_mode", Value: "WAL"},
	{Name: "synchronous", Value: "NORMAL"},
	{Name: "cache_size", Value: "-10000"}, // ~10MB
	{Name: "temp_store", Value: "MEMORY"},
	{Name: "page_size", Value: "4096"},
	{Name: "foreign_keys", Value: "ON"},
	{Name: "optimize"},
}

// Pragmas returns the tuning settings in the order they are applied.
func Pragmas() []Pragma {
	return append([]Pragma(nil), pragmas...)
}
