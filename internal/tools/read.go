package tools

import (
	"bufio"
	"context"
	"os"

	"github.com/duskforge/vigil/internal/fileutil"
)

// maxReadLines bounds a single read_file response; a model wanting more of
// a large file pages forward with offset.
const maxReadLines = 400

func (e *Executor) readFile(ctx context.Context, args map[string]interface{}) (string, error) {
	raw := stringArg(args, "path")
	offset := intArg(args, "offset", 0)

	abs, rel, perr := e.resolvePath(raw)
	if perr != nil {
		return perr.JSON(), nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return (&PathError{Kind: PathNotFound, Path: raw}).JSON(), nil
	}
	if info.IsDir() {
		return (&PathError{Kind: PathNotAFile, Path: raw}).JSON(), nil
	}

	f, err := os.Open(abs)
	if err != nil {
		return (&PathError{Kind: PathNotFound, Path: raw}).JSON(), nil
	}
	defer f.Close()

	head := make([]byte, 8192)
	n, _ := f.Read(head)
	if fileutil.LooksBinary(head[:n]) {
		return (&PathError{Kind: PathIsBinary, Path: raw}).JSON(), nil
	}
	f.Seek(0, 0)

	var items []interface{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum <= offset {
			continue
		}
		items = append(items, map[string]interface{}{
			"line": lineNum,
			"text": scanner.Text(),
		})
		if len(items) >= maxReadLines {
			break
		}
	}

	env := Envelope{Items: items, Offset: offset}
	if len(items) == maxReadLines {
		env.HasMore = true
		env.NextOffset = offset + maxReadLines
	}
	_ = rel
	return marshalEnvelope(env), nil
}
