package main

import (
	"fmt"
	"strconv"
	"strings"
)

// cmdArgs is a parsed subcommand line: positionals plus --flags.
type cmdArgs struct {
	positional []string
	values     map[string]string
	bools      map[string]bool
}

// parseCmdArgs splits args. Names listed in valueFlags take a value
// (--name v or --name=v); any other --flag is a boolean.
func parseCmdArgs(args []string, valueFlags ...string) (*cmdArgs, error) {
	takesValue := make(map[string]bool, len(valueFlags))
	for _, f := range valueFlags {
		takesValue[f] = true
	}

	ca := &cmdArgs{values: map[string]string{}, bools: map[string]bool{}}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") || arg == "--" {
			ca.positional = append(ca.positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !takesValue[name] {
			if hasValue {
				return nil, fmt.Errorf("--%s does not take a value", name)
			}
			ca.bools[name] = true
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		ca.values[name] = value
	}
	return ca, nil
}

// arg returns positional i or "".
func (c *cmdArgs) arg(i int) string {
	if i < len(c.positional) {
		return c.positional[i]
	}
	return ""
}

// require returns the first n positionals or a usage error naming them.
func (c *cmdArgs) require(names ...string) ([]string, error) {
	if len(c.positional) < len(names) {
		return nil, fmt.Errorf("missing %s", strings.Join(names[len(c.positional):], ", "))
	}
	return c.positional[:len(names)], nil
}

func (c *cmdArgs) value(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

func (c *cmdArgs) flag(name string) bool {
	return c.bools[name]
}

// intValue parses --name as an int, returning def when absent.
func (c *cmdArgs) intValue(name string, def int) (int, error) {
	v, ok := c.values[name]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("--%s must be a number, got %q", name, v)
	}
	return n, nil
}

// cutFlag matches --name=value.
func cutFlag(arg, name string) (string, bool) {
	return strings.CutPrefix(arg, name+"=")
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
