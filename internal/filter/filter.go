package filter

import (
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/smdrkit/smdrd/internal/record"
	"github.com/smdrkit/smdrd/pkg/errors"
)

// Env is the environment a filter expression is evaluated against.
// Env 是过滤表达式求值时使用的环境。
type Env struct {
	Line   string // The raw call record line
	Source string // host:port of the sending PBX

	// Cache
	fields       []string
	fieldsParsed bool
}

var envPool = sync.Pool{
	New: func() interface{} {
		return &Env{}
	},
}

var regexCache sync.Map

// Reset resets the environment for reuse.
func (e *Env) Reset() {
	e.Line = ""
	e.Source = ""
	e.fields = nil
	e.fieldsParsed = false
}

// Fields returns the comma-separated fields of the record, honouring
// quoted fields. An unparseable line yields an empty slice.
func (e *Env) Fields() []string {
	if !e.fieldsParsed {
		e.fields = record.SplitFields(e.Line)
		e.fieldsParsed = true
	}
	return e.fields
}

// Field returns the i-th field, or "" when the index is out of range.
// Expressions stay total this way, e.g. Field(3) == "Outgoing".
func (e *Env) Field(i int) string {
	fields := e.Fields()
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// Named returns the field with the given canonical SMDR name
// (record.FieldNames), or "" when the name is unknown or the record is
// short, e.g. Named("direction") == "O".
// Named 按规范 SMDR 字段名（record.FieldNames）取字段值。
func (e *Env) Named(name string) string {
	for i, n := range record.FieldNames {
		if n == name {
			return e.Field(i)
		}
	}
	return ""
}

// Contains checks if the line contains the given string (Case Insensitive).
// Usage: Contains("conference")
func (e *Env) Contains(needle string) bool {
	return strings.Contains(strings.ToLower(e.Line), strings.ToLower(needle))
}

// ContainsE checks if the line contains the given string (Case Sensitive / Exact).
func (e *Env) ContainsE(needle string) bool {
	return strings.Contains(e.Line, needle)
}

// Match checks if the line matches the given regular expression.
// Match 检查记录行是否匹配给定的正则表达式。
func (e *Env) Match(pattern string) bool {
	re, ok := regexCache.Load(pattern)
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return false
		}
		regexCache.Store(pattern, re)
	}
	return re.(*regexp.Regexp).MatchString(e.Line)
}

// Filter decides per record whether it is kept or discarded.
// An empty expression keeps everything.
type Filter struct {
	source  string
	program *vm.Program
}

// New compiles the given filter expression. An empty expression returns
// a pass-through filter.
func New(expression string) (*Filter, error) {
	f := &Filter{source: expression}
	if strings.TrimSpace(expression) == "" {
		return f, nil
	}

	program, err := expr.Compile(expression, expr.Env(&Env{}), expr.AsBool())
	if err != nil {
		return nil, errors.NewFilterError(expression, err)
	}
	f.program = program
	return f, nil
}

// Source returns the original expression text.
func (f *Filter) Source() string {
	return f.source
}

// Accept reports whether the record passes the filter. Evaluation errors
// fail open so a bad expression never silently drops call records.
func (f *Filter) Accept(rec record.Record) bool {
	if f.program == nil {
		return true
	}

	env := envPool.Get().(*Env)
	defer func() {
		env.Reset()
		envPool.Put(env)
	}()

	env.Line = rec.Line
	env.Source = rec.Source()

	output, err := expr.Run(f.program, env)
	if err != nil {
		return true
	}
	matched, ok := output.(bool)
	if !ok {
		return true
	}
	return matched
}
