package perfmetrics

import (
	"regexp"
	"runtime"
	"strings"
)

// funcStat derives a stat name from the runtime name of the function at pc.
// The package is the last element of the import path. Methods are named
// "<package>.<Type>.<Method>" when method is set and "<package>.<Method>"
// otherwise; closures keep their enclosing function, e.g. "pkg.Outer.func1".
func funcStat(pc uintptr, method bool) string {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	pkg, recv, name := splitFuncName(fn.Name())
	if recv == "" {
		return pkg + "." + name
	}
	if method {
		return pkg + "." + recv + "." + name
	}
	return pkg + "." + name
}

var (
	typeParams = regexp.MustCompile(`\[[^\]]*\]`)
	closure    = regexp.MustCompile(`\.func\d+(\.\d+)*$`)
)

// splitFuncName splits a runtime function name such as
// "github.com/a/b.(*T).M-fm" into package "b", receiver "T" and name "M".
// recv is empty for plain functions and closures.
func splitFuncName(full string) (pkg, recv, name string) {
	full = typeParams.ReplaceAllString(full, "")
	full = strings.TrimSuffix(full, "-fm")

	if i := strings.LastIndexByte(full, '/'); i >= 0 {
		full = full[i+1:]
	}
	dot := strings.IndexByte(full, '.')
	if dot < 0 {
		return full, "", full
	}
	pkg, rest := full[:dot], full[dot+1:]

	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end > 0 && end+2 <= len(rest) {
			return pkg, strings.TrimPrefix(rest[1:end], "*"), rest[end+2:]
		}
	}
	if closure.MatchString(rest) {
		return pkg, "", rest
	}
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		return pkg, rest[:i], rest[i+1:]
	}
	return pkg, "", rest
}
