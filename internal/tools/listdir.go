package tools

import (
	"context"
	"os"
	"sort"
	"strings"
)

var hiddenOrBuildDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, ".vigil": true,
}

func (e *Executor) listDirectory(ctx context.Context, args map[string]interface{}) (string, error) {
	raw := stringArg(args, "path")
	offset := intArg(args, "offset", 0)
	if raw == "" {
		raw = "."
	}

	abs, _, perr := e.resolvePath(raw)
	if perr != nil {
		return perr.JSON(), nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return (&PathError{Kind: PathNotFound, Path: raw}).JSON(), nil
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") && name != "." {
			continue
		}
		if entry.IsDir() && hiddenOrBuildDirs[name] {
			continue
		}
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]interface{}, len(names))
	for i, n := range names {
		items[i] = n
	}
	return marshalEnvelope(paginate(items, offset)), nil
}
