package tools

import "context"

func (e *Executor) getFileDiff(ctx context.Context, args map[string]interface{}) (string, error) {
	raw := stringArg(args, "path")
	context_ := intArg(args, "context_lines", 3)

	_, rel, perr := e.resolvePath(raw)
	if perr != nil {
		return perr.JSON(), nil
	}

	diff, err := e.repo.FileDiff(rel, context_)
	if err != nil {
		return (&PathError{Kind: PathNotFound, Path: raw}).JSON(), nil
	}

	return marshalEnvelope(Envelope{Items: []interface{}{diff}}), nil
}
