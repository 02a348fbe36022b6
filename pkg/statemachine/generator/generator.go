// Package generator 根据状态列表生成状态类型的 Go 源码。
//
// 生成的类型为命名 int 类型，每个状态一个常量，序号等于声明顺序，
// 并附带 String、Ordinal、IsValid 方法以及 Values、Parse 函数。
package generator

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"go/types"
	"strings"
	"text/template"

	"github.com/junbin-yang/go-fsm/pkg/statemachine"
)

// Declaration 一组状态的声明
type Declaration struct {
	Package string   `yaml:"package" json:"package"`
	Type    string   `yaml:"type" json:"type"`
	States  []string `yaml:"states" json:"states"`
	Output  string   `yaml:"output" json:"output"`
}

var (
	// ErrInvalidPackage 包名不合法时返回
	ErrInvalidPackage = errors.New("invalid package name")

	// ErrInvalidType 类型名不合法时返回
	ErrInvalidType = errors.New("invalid type name")

	// ErrConflict 多个声明之间标识符或输出文件冲突时返回
	ErrConflict = errors.New("conflicting declarations")
)

// Validate 校验声明，规则与 statemachine.NewEnum 一致，
// 另外拒绝预声明标识符以及与生成代码冲突的名称
func (d *Declaration) Validate() error {
	if !token.IsIdentifier(d.Package) || d.Package == "_" {
		return fmt.Errorf("%w: %q", ErrInvalidPackage, d.Package)
	}
	if !token.IsIdentifier(d.Type) || d.Type == "_" || d.Type == "fmt" || isPredeclared(d.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidType, d.Type)
	}
	if _, err := statemachine.NewEnum[int](d.States...); err != nil {
		return fmt.Errorf("type %s: %w", d.Type, err)
	}

	generated := map[string]bool{"fmt": true}
	for _, id := range d.generatedIdentifiers() {
		generated[id] = true
	}
	for _, s := range d.States {
		switch {
		case s == "_":
			return fmt.Errorf("type %s: %w: blank identifier", d.Type, statemachine.ErrInvalidStateName)
		case isPredeclared(s):
			return fmt.Errorf("type %s: %w: %s is a predeclared identifier", d.Type, statemachine.ErrInvalidStateName, s)
		case generated[s]:
			return fmt.Errorf("type %s: %w: %s collides with a generated identifier", d.Type, statemachine.ErrInvalidStateName, s)
		}
	}
	return nil
}

// Identifiers 返回生成文件在包作用域内声明的全部标识符
func (d *Declaration) Identifiers() []string {
	ids := append([]string{}, d.generatedIdentifiers()...)
	return append(ids, d.States...)
}

func (d *Declaration) generatedIdentifiers() []string {
	return []string{d.Type, d.Type + "Values", "Parse" + d.Type, "_" + d.Type + "Names"}
}

// isPredeclared 判断是否为 Go 预声明标识符（int、string、len、nil 等）
func isPredeclared(name string) bool {
	return types.Universe.Lookup(name) != nil
}

// CheckConflicts 检查同一包内多个声明的标识符是否冲突
func CheckConflicts(decls []Declaration) error {
	owners := make(map[[2]string]string)
	for _, d := range decls {
		for _, id := range d.Identifiers() {
			key := [2]string{d.Package, id}
			if owner, ok := owners[key]; ok {
				return fmt.Errorf("%w: %s declared by both %s and %s in package %s",
					ErrConflict, id, owner, d.Type, d.Package)
			}
			owners[key] = d.Type
		}
	}
	return nil
}

// OutputFile 返回输出文件名，未指定时为 <type>_states.go
func (d *Declaration) OutputFile() string {
	if d.Output != "" {
		return d.Output
	}
	return strings.ToLower(d.Type) + "_states.go"
}

// ParseStates 解析逗号分隔的状态列表
func ParseStates(s string) []string {
	parts := strings.Split(s, ",")
	states := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			states = append(states, p)
		}
	}
	return states
}

type stateData struct {
	Name string
}

type templateData struct {
	Package string
	Type    string
	States  []stateData
}

var fileTemplate = template.Must(template.New("states").Parse(`// Code generated by statemachine-gen. DO NOT EDIT.

package {{.Package}}

import "fmt"

// {{.Type}} is a state type with {{len .States}} declared values.
type {{.Type}} int

const (
{{- range $i, $s := .States}}
	{{$s.Name}}{{if eq $i 0}} {{$.Type}} = iota{{end}}
{{- end}}
)

var _{{.Type}}Names = [...]string{
{{- range .States}}
	"{{.Name}}",
{{- end}}
}

// String returns the declared name of the state.
func (s {{.Type}}) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("{{.Type}}(%d)", int(s))
	}
	return _{{.Type}}Names[s]
}

// Ordinal returns the zero-based declaration position of the state.
func (s {{.Type}}) Ordinal() int {
	return int(s)
}

// IsValid reports whether s is one of the declared states.
func (s {{.Type}}) IsValid() bool {
	return s >= 0 && int(s) < len(_{{.Type}}Names)
}

// {{.Type}}Values returns all states in declaration order.
func {{.Type}}Values() []{{.Type}} {
	return []{{.Type}}{
{{- range .States}}
		{{.Name}},
{{- end}}
	}
}

// Parse{{.Type}} returns the state with the given name.
func Parse{{.Type}}(name string) ({{.Type}}, error) {
	for i, n := range _{{.Type}}Names {
		if n == name {
			return {{.Type}}(i), nil
		}
	}
	return 0, fmt.Errorf("unknown {{.Type}} state: %s", name)
}
`))

// Generate 生成状态类型源码
func Generate(d Declaration) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	data := templateData{
		Package: d.Package,
		Type:    d.Type,
		States:  make([]stateData, len(d.States)),
	}
	for i, name := range d.States {
		data.States[i] = stateData{Name: name}
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template failed: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format source failed: %w", err)
	}
	return src, nil
}
