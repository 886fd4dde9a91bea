package runner

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
)

// checkSource rejects code that starts goroutines. A panic on a goroutine
// the code started cannot be recovered by the host and would end the
// process. Whole programs are checked on their syntax tree; fragments that
// do not parse as a file are checked token by token.
func checkSource(code string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "submission.go", code, parser.SkipObjectResolution)
	if err != nil {
		return scanForGo(code)
	}

	var found token.Pos
	ast.Inspect(file, func(n ast.Node) bool {
		if g, ok := n.(*ast.GoStmt); ok && !found.IsValid() {
			found = g.Go
		}
		return !found.IsValid()
	})
	if found.IsValid() {
		return fmt.Errorf("%w at line %d", ErrGoroutine, fset.Position(found).Line)
	}
	return nil
}

func scanForGo(code string) error {
	fset := token.NewFileSet()
	src := []byte(code)
	f := fset.AddFile("submission.go", -1, len(src))

	var s scanner.Scanner
	s.Init(f, src, nil, 0)
	for {
		pos, tok, _ := s.Scan()
		switch tok {
		case token.EOF:
			return nil
		case token.GO:
			return fmt.Errorf("%w at line %d", ErrGoroutine, fset.Position(pos).Line)
		}
	}
}
