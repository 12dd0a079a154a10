// Package structural parses Go source and walks the syntax tree to find
// prompt-builder functions, invocation call sites (with loop context and
// argument spans), and instruction text embedded in struct-literal fields.
// Callers receive plain value types; go/ast never leaks out of this
// package. On a parse error callers fall back to the textual analyzer.
package structural

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/costscan/internal/catalog"
)

// PromptBuilder describes one function that assembles prompt text, with a
// static/dynamic split of the string content it composes.
type PromptBuilder struct {
	Name         string
	Line         int
	StaticChars  int
	StaticTokens int // StaticChars / catalog.CharsPerToken
	Dynamic      bool
	UsesSprintf  bool
	UsesConcat   bool
	CallCount    int
	InsideLoop   bool // any call site lexically inside a for/range body
}

// CallSite is one invocation-registry match in the tree.
type CallSite struct {
	Pattern    *catalog.InvocationPattern
	Callee     string
	Line       int
	InsideLoop bool
	ArgStart   int // byte offset just after the opening parenthesis
	ArgEnd     int // byte offset of the closing parenthesis
}

// SerializeCall is a call to a serialize-to-structured-text function
// (json.Marshal and friends), recorded for proximity correlation with
// invocation call sites.
type SerializeCall struct {
	Line       int
	Callee     string
	InsideLoop bool
}

// InstructionArg is instruction text captured from a struct-literal field
// named like a system prompt.
type InstructionArg struct {
	Field string
	Line  int
	Text  string
}

// File is the analyzed view of one Go source file.
type File struct {
	Builders     []PromptBuilder
	Calls        []CallSite
	Serializes   []SerializeCall
	Instructions []InstructionArg
}

// builderName matches the prompt-builder heuristic: the name contains
// prompt/message/instruction, or starts with a construction verb.
var builderName = regexp.MustCompile(`(?i)prompt|message|instruction|^(build|create|format|generate)`)

var instructionFields = map[string]bool{
	"System": true, "SystemPrompt": true, "Instructions": true, "Prompt": true,
}

var serializeCallees = map[string]bool{
	"json.Marshal": true, "json.MarshalIndent": true,
	"yaml.Marshal": true, "xml.Marshal": true,
}

// Parse analyzes content as a single Go source file.
func Parse(content string) (*File, error) {
	fset := token.NewFileSet()
	root, err := parser.ParseFile(fset, "src.go", content, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	w := &walker{fset: fset, out: &File{}, callCounts: map[string]int{}, loopCalls: map[string]bool{}}
	for _, decl := range root.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		if builderName.MatchString(fn.Name.Name) {
			w.out.Builders = append(w.out.Builders, w.analyzeBuilder(fn))
		}
		w.walk(fn.Body, false)
	}

	// Second pass: attach call counts and loop context to builders.
	for i := range w.out.Builders {
		b := &w.out.Builders[i]
		b.CallCount = w.callCounts[b.Name]
		b.InsideLoop = w.loopCalls[b.Name]
	}
	return w.out, nil
}

type walker struct {
	fset       *token.FileSet
	out        *File
	callCounts map[string]int
	loopCalls  map[string]bool
}

// walk records call sites, serialize calls, and instruction fields,
// tracking whether the current node sits lexically inside a loop body.
func (w *walker) walk(n ast.Node, inLoop bool) {
	ast.Inspect(n, func(node ast.Node) bool {
		switch x := node.(type) {
		case *ast.ForStmt:
			if x.Init != nil {
				w.walk(x.Init, inLoop)
			}
			if x.Cond != nil {
				w.walk(x.Cond, inLoop)
			}
			if x.Post != nil {
				w.walk(x.Post, inLoop)
			}
			w.walk(x.Body, true)
			return false
		case *ast.RangeStmt:
			w.walk(x.X, inLoop)
			w.walk(x.Body, true)
			return false
		case *ast.CallExpr:
			w.recordCall(x, inLoop)
		case *ast.CompositeLit:
			w.recordInstructionFields(x)
		}
		return true
	})
}

func (w *walker) recordCall(call *ast.CallExpr, inLoop bool) {
	callee := calleeName(call.Fun)
	if callee == "" {
		return
	}

	short := callee
	if i := strings.LastIndexByte(callee, '.'); i >= 0 {
		short = callee[i+1:]
	}
	w.callCounts[short]++
	if inLoop {
		w.loopCalls[short] = true
	}

	if inv := catalog.InvocationByIdent(callee); inv != nil {
		w.out.Calls = append(w.out.Calls, CallSite{
			Pattern:    inv,
			Callee:     callee,
			Line:       w.fset.Position(call.Lparen).Line,
			InsideLoop: inLoop,
			ArgStart:   w.fset.Position(call.Lparen).Offset + 1,
			ArgEnd:     w.fset.Position(call.Rparen).Offset,
		})
	}
	if serializeCallees[callee] {
		w.out.Serializes = append(w.out.Serializes, SerializeCall{
			Line:       w.fset.Position(call.Lparen).Line,
			Callee:     callee,
			InsideLoop: inLoop,
		})
	}
}

func (w *walker) recordInstructionFields(lit *ast.CompositeLit) {
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok || !instructionFields[key.Name] {
			continue
		}
		text, _ := stringContent(kv.Value)
		if text == "" {
			continue
		}
		w.out.Instructions = append(w.out.Instructions, InstructionArg{
			Field: key.Name,
			Line:  w.fset.Position(kv.Pos()).Line,
			Text:  text,
		})
	}
}

// analyzeBuilder sums the static/dynamic string composition of a builder
// body. Literal segments (including the non-verb parts of a Sprintf format
// string) count as static; interpolated values mark the builder dynamic.
func (w *walker) analyzeBuilder(fn *ast.FuncDecl) PromptBuilder {
	b := PromptBuilder{
		Name: fn.Name.Name,
		Line: w.fset.Position(fn.Pos()).Line,
	}

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.CallExpr:
			if calleeName(node.Fun) == "fmt.Sprintf" && len(node.Args) > 0 {
				b.UsesSprintf = true
				if format, ok := basicString(node.Args[0]); ok {
					b.StaticChars += len(stripVerbs(format))
				}
				if len(node.Args) > 1 {
					b.Dynamic = true
				}
				return false // args already accounted for
			}
		case *ast.BinaryExpr:
			if node.Op == token.ADD {
				_, lok := basicString(node.X)
				_, rok := basicString(node.Y)
				if lok || rok {
					b.UsesConcat = true
				}
				if !lok || !rok {
					b.Dynamic = true
				}
			}
		case *ast.BasicLit:
			if node.Kind == token.STRING {
				if s, err := strconv.Unquote(node.Value); err == nil {
					b.StaticChars += len(s)
				}
			}
		}
		return true
	})

	b.StaticTokens = b.StaticChars / catalog.CharsPerToken
	return b
}

// stringContent extracts the static text of an expression, rendering
// Sprintf verbs as placeholders. The second result reports whether any
// dynamic segment was seen.
func stringContent(expr ast.Expr) (string, bool) {
	switch node := expr.(type) {
	case *ast.BasicLit:
		if node.Kind == token.STRING {
			if s, err := strconv.Unquote(node.Value); err == nil {
				return s, false
			}
		}
	case *ast.BinaryExpr:
		if node.Op == token.ADD {
			l, ld := stringContent(node.X)
			r, rd := stringContent(node.Y)
			return l + r, ld || rd || l == "" || r == ""
		}
	case *ast.CallExpr:
		if calleeName(node.Fun) == "fmt.Sprintf" && len(node.Args) > 0 {
			if format, ok := basicString(node.Args[0]); ok {
				return format, len(node.Args) > 1
			}
		}
	}
	return "", false
}

func basicString(expr ast.Expr) (string, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", false
	}
	return s, true
}

var formatVerb = regexp.MustCompile(`%[-+ #0]*[0-9*]*(?:\.[0-9*]+)?[a-zA-Z%]`)

func stripVerbs(format string) string {
	return formatVerb.ReplaceAllString(format, "")
}

// calleeName renders a call target as a dotted path ("client.InvokeModel",
// "fmt.Sprintf"). Anonymous or computed targets yield "".
func calleeName(expr ast.Expr) string {
	switch node := expr.(type) {
	case *ast.Ident:
		return node.Name
	case *ast.SelectorExpr:
		base := calleeName(node.X)
		if base == "" {
			return node.Sel.Name
		}
		return base + "." + node.Sel.Name
	}
	return ""
}
