package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/dianpeng/sqlframe/mem"
	"github.com/dianpeng/sqlframe/plan"
)

var fBasepath = flag.String(
	"basepath",
	".",
	"base directory for copy from/to statements and -table paths",
)

var fVerbose = flag.Bool(
	"verbose",
	false,
	"enable debug logging",
)

// -table emp=emp.csv, repeatable
type tableFlags []string

func (self *tableFlags) String() string {
	return strings.Join(*self, ",")
}

func (self *tableFlags) Set(v string) error {
	*self = append(*self, v)
	return nil
}

var fTable tableFlags

func oops(stage string, err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "ERROR [%s]]] %s\n", stage, err)
	os.Exit(-1)
}

func readStdin() string {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		oops("read sql", err)
	}
	return string(data)
}

// splitStatements splits the input on semicolons outside of string literals
// and quoted identifiers.
func splitStatements(src string) []string {
	out := []string{}
	current := []rune{}

	inStr := false
	inQId := false
	escaped := false

	for _, c := range src {
		switch {
		case escaped:
			escaped = false
			current = append(current, c)
		case c == '\\':
			escaped = true
			current = append(current, c)
		case c == '\'' && !inQId:
			inStr = !inStr
			current = append(current, c)
		case c == '"' && !inStr:
			inQId = !inQId
			current = append(current, c)
		case c == ';' && !inStr && !inQId:
			out = append(out, string(current))
			current = current[:0]
		default:
			current = append(current, c)
		}
	}
	out = append(out, string(current))

	stmts := []string{}
	for _, s := range out {
		if strings.TrimSpace(s) != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func main() {
	flag.Var(&fTable, "table", "load a csv file into scope, name=path, repeatable")
	flag.Parse()

	if *fVerbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	model := mem.NewModel(*fBasepath)
	exec := plan.NewExecutor(model, plan.NewScope())

	for _, entry := range fTable {
		idx := strings.Index(entry, "=")
		if idx <= 0 {
			oops("load table", fmt.Errorf("invalid -table value %q, want name=path", entry))
		}
		name := entry[:idx]
		path := entry[idx+1:]

		if err := model.CopyFrom(exec.Scope(), name, path, nil); err != nil {
			oops("load table", err)
		}
	}

	for _, stmt := range splitStatements(readStdin()) {
		out, err := exec.Execute(stmt)
		if err != nil {
			oops("execute", err)
		}
		if out != nil {
			fmt.Print(out.(*mem.Table).Format())
		}
	}
	os.Exit(0)
}
