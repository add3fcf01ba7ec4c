package tooling

import (
	"context"
	"encoding/json"
	"fmt"

	"bugx/internal/llm"
	"bugx/internal/sandbox"
)

type writeFileArgs struct {
	Path    string `json:"path" jsonschema_description:"File path relative to the working directory."`
	Content string `json:"content" jsonschema_description:"Complete new file content. Existing files are overwritten."`
}

// WriteFileTool creates or overwrites a file.
type WriteFileTool struct {
	store *sandbox.FileStore
}

func NewWriteFileTool(store *sandbox.FileStore) *WriteFileTool {
	return &WriteFileTool{store: store}
}

func (t *WriteFileTool) Definition() llm.ToolDefinition {
	return definition("write_file",
		"Write the full content of a file, creating parent directories as needed. Overwrites any existing file.",
		&writeFileArgs{})
}

func (t *WriteFileTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	var in writeFileArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	res, err := t.store.Write(in.Path, in.Content)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully wrote to %q (%d characters, %d bytes)", res.Path, res.Chars, res.Bytes), nil
}

// CreateFileTool is the explicit file creation entry point.
type CreateFileTool struct {
	store *sandbox.FileStore
}

func NewCreateFileTool(store *sandbox.FileStore) *CreateFileTool {
	return &CreateFileTool{store: store}
}

func (t *CreateFileTool) Definition() llm.ToolDefinition {
	return definition("create_file",
		"Create a new file with the given content, creating parent directories as needed.",
		&writeFileArgs{})
}

func (t *CreateFileTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	var in writeFileArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	res, err := t.store.Create(in.Path, in.Content)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("File %q created successfully (%d chars, %d bytes).", res.Path, res.Chars, res.Bytes), nil
}

type readFileArgs struct {
	Path     string `json:"path" jsonschema_description:"File path relative to the working directory."`
	MaxChars int    `json:"max_chars,omitempty" jsonschema_description:"Maximum number of characters to return. Defaults to the configured cap."`
}

// ReadFileTool returns file content wrapped as {"result": ...}.
type ReadFileTool struct {
	store *sandbox.FileStore
}

func NewReadFileTool(store *sandbox.FileStore) *ReadFileTool {
	return &ReadFileTool{store: store}
}

func (t *ReadFileTool) Definition() llm.ToolDefinition {
	return definition("read_file",
		"Read a text file. Long files are truncated and end with a notice saying so.",
		&readFileArgs{})
}

func (t *ReadFileTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	var in readFileArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	res, err := t.store.Read(in.Path, in.MaxChars)
	if err != nil {
		return "", err
	}
	return wrapResult(res.Text()), nil
}

// RenderError keeps failures in the same {"result": ...} envelope.
func (t *ReadFileTool) RenderError(err error) string {
	return wrapResult(ErrorText(err))
}

func wrapResult(text string) string {
	data, err := json.Marshal(map[string]string{"result": text})
	if err != nil {
		return ErrorText(err)
	}
	return string(data)
}

type scanDirectoryArgs struct {
	Directory string `json:"directory,omitempty" jsonschema_description:"Directory relative to the working directory. Defaults to the working directory itself."`
}

// ScanDirectoryTool lists the immediate children of a directory.
type ScanDirectoryTool struct {
	scanner *sandbox.Scanner
}

func NewScanDirectoryTool(scanner *sandbox.Scanner) *ScanDirectoryTool {
	return &ScanDirectoryTool{scanner: scanner}
}

func (t *ScanDirectoryTool) Definition() llm.ToolDefinition {
	return definition("scan_directory",
		"List the files and folders directly inside a directory with their sizes.",
		&scanDirectoryArgs{})
}

func (t *ScanDirectoryTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	var in scanDirectoryArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	entries, err := t.scanner.Scan(in.Directory)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return fmt.Sprintf("Directory %q is empty.", displayDir(in.Directory)), nil
	}
	return sandbox.FormatEntries(entries), nil
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

type deleteOrMoveArgs struct {
	Action      string `json:"action" jsonschema:"enum=delete,enum=move" jsonschema_description:"Either delete or move."`
	Source      string `json:"source" jsonschema_description:"File or directory to act on, relative to the working directory."`
	Destination string `json:"destination,omitempty" jsonschema_description:"Target path. Required when action is move. An existing directory receives the source under its own name."`
}

// DeleteOrMoveTool removes or relocates files and directories.
type DeleteOrMoveTool struct {
	refactorer *sandbox.Refactorer
}

func NewDeleteOrMoveTool(refactorer *sandbox.Refactorer) *DeleteOrMoveTool {
	return &DeleteOrMoveTool{refactorer: refactorer}
}

func (t *DeleteOrMoveTool) Definition() llm.ToolDefinition {
	return definition("delete_or_move",
		"Delete a file or directory, or move it to a new path inside the working directory.",
		&deleteOrMoveArgs{})
}

func (t *DeleteOrMoveTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	var in deleteOrMoveArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	return t.refactorer.Apply(in.Action, in.Source, in.Destination)
}
