package manifest

import (
	"fmt"
	"strings"
)

// Signature is the structural description of a function's parameter and
// return types, in the canonical form "ret(param,param,...)". It
// disambiguates overloaded exported names; signatures are unique within one
// exported name's variant group.
type Signature string

// Sig builds a canonical Signature from a return type and parameter types,
// e.g. Sig("int64", "int64", "int64") == "int64(int64,int64)".
func Sig(ret string, params ...string) Signature {
	return Signature(fmt.Sprintf("%s(%s)", ret, strings.Join(params, ",")))
}

// Arity returns the number of parameters in the signature, or -1 if the
// signature is not in canonical form.
func (s Signature) Arity() int {
	open := strings.IndexByte(string(s), '(')
	if open < 0 || !strings.HasSuffix(string(s), ")") {
		return -1
	}
	inner := string(s[open+1 : len(s)-1])
	if inner == "" {
		return 0
	}
	return strings.Count(inner, ",") + 1
}

func (s Signature) String() string {
	return string(s)
}
