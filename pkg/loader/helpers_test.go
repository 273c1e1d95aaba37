// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"bufio"
	"bytes"
	"context"
	"strings"
)

// scriptEvaluator runs a tiny line language:
//
//	set <key> <value>   sets a named export
//	require <spec>      loads spec and records the keys it exported so far
//	                    as the export "saw:<spec>"
//	fail                returns an error
type scriptEvaluator struct {
	runs map[string]int
}

func newScriptEvaluator() *scriptEvaluator {
	return &scriptEvaluator{runs: map[string]int{}}
}

func (e *scriptEvaluator) Evaluate(ctx context.Context, content []byte, mod *Module) error {
	e.runs[mod.ID]++
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "set":
			mod.Exports.Set(fields[1], fields[2])
		case "require":
			dep, err := mod.Require(ctx, fields[1])
			if err != nil {
				return err
			}
			mod.Exports.Set("saw:"+fields[1], strings.Join(dep.Exports.Keys(), ","))
		case "fail":
			return errBoom
		}
	}
	return sc.Err()
}
