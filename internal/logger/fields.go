package logger

import (
	"log/slog"
)

// Standard field keys for structured logging, shared between the server and
// the client daemon. Use these consistently so log lines stay greppable
// across both binaries.
const (
	KeyRequestID = "request_id" // HTTP request ID (chi middleware.RequestID)
	KeyMethod    = "method"     // HTTP method
	KeyPath      = "path"       // request path or namespace path
	KeyStatus    = "status"     // HTTP status code
	KeyDuration  = "duration"   // operation duration

	KeyUsername = "username" // authenticated username
	KeyUserID   = "user_id"  // authenticated user id

	KeyFilename   = "filename"    // basename of a file/directory
	KeyParentPath = "parent_path" // parent directory path
	KeyOldPath    = "old_path"    // rename source
	KeyNewPath    = "new_path"    // rename destination
	KeySize       = "size"        // byte count
	KeyMode       = "mode"        // permission triple / octal mode
	KeyOffset     = "offset"      // read/write offset
	KeyInodeID    = "inode_id"    // client-side FUSE inode

	KeyError = "error" // error message
)

// Path returns a slog.Attr for a namespace or request path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Username returns a slog.Attr for an authenticated username.
func Username(name string) slog.Attr { return slog.String(KeyUsername, name) }

// UserID returns a slog.Attr for an authenticated user id.
func UserID(id uint32) slog.Attr { return slog.Uint64(KeyUserID, uint64(id)) }

// Size returns a slog.Attr for a byte count.
func Size(s uint64) slog.Attr { return slog.Uint64(KeySize, s) }

// InodeID returns a slog.Attr for a client-side inode number.
func InodeID(id uint64) slog.Attr { return slog.Uint64(KeyInodeID, id) }

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
