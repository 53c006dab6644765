package tools

import "github.com/duskforge/vigil/internal/llm"

// Specs returns the function-calling declarations for all 10 tools, in the
// shape passed to llm.Client.Query.
func Specs() []llm.ToolSpec {
	str := map[string]interface{}{"type": "string"}
	num := map[string]interface{}{"type": "integer"}
	return []llm.ToolSpec{
		{
			Name:        "search_text",
			Description: "Search file contents for a regular expression, optionally scoped by a glob.",
			Parameters: objSchema(map[string]interface{}{
				"pattern": str, "path_glob": str, "offset": num,
			}, "pattern"),
		},
		{
			Name:        "read_file",
			Description: "Read lines from a text file starting at an optional offset.",
			Parameters:  objSchema(map[string]interface{}{"path": str, "offset": num}, "path"),
		},
		{
			Name:        "list_directory",
			Description: "List the entries of a directory.",
			Parameters:  objSchema(map[string]interface{}{"path": str, "offset": num}, ),
		},
		{
			Name:        "get_file_diff",
			Description: "Get the unified diff of a file against HEAD.",
			Parameters:  objSchema(map[string]interface{}{"path": str, "context_lines": num}, "path"),
		},
		{
			Name:        "get_file_summary",
			Description: "List the top-level symbols (functions, types) defined in a file.",
			Parameters:  objSchema(map[string]interface{}{"path": str}, "path"),
		},
		{
			Name:        "symbol_exists",
			Description: "Check whether a named symbol is defined anywhere in the repository.",
			Parameters:  objSchema(map[string]interface{}{"name": str}, "name"),
		},
		{
			Name:        "find_definition",
			Description: "Find where a named symbol is defined.",
			Parameters:  objSchema(map[string]interface{}{"name": str, "offset": num}, "name"),
		},
		{
			Name:        "find_symbols",
			Description: "Search symbol names by substring across the repository.",
			Parameters:  objSchema(map[string]interface{}{"pattern": str, "offset": num}, ),
		},
		{
			Name:        "get_enclosing_scope",
			Description: "Find the function or type enclosing a given file/line.",
			Parameters:  objSchema(map[string]interface{}{"path": str, "line": num}, "path", "line"),
		},
		{
			Name:        "find_usages",
			Description: "Find textual references to a named symbol across the repository.",
			Parameters:  objSchema(map[string]interface{}{"name": str, "offset": num}, "name"),
		},
	}
}

func objSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
