package apiclient

import (
	"fmt"
	"net/http"
)

// FileInfo mirrors the server's handlers.FileInfo payload shape, returned
// by both /list and /lookup.
type FileInfo struct {
	Mode     uint32 `json:"permissions"`
	Links    uint32 `json:"links"`
	Owner    string `json:"owner"`
	Group    string `json:"group"`
	Size     uint64 `json:"size"`
	Modified string `json:"modified"`
	Name     string `json:"name"`
	IsDir    bool   `json:"is_directory"`
}

// List calls GET /list/<path> (or GET /list for the root), returning the
// FileInfo for every direct child.
func (c *Client) List(path string) ([]FileInfo, error) {
	var out []FileInfo
	if err := c.get(urlPath("list", path), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Lookup calls GET /lookup/<path>, returning the FileInfo for the node at
// path.
func (c *Client) Lookup(path string) (FileInfo, error) {
	var out FileInfo
	if err := c.get(urlPath("lookup", path), &out); err != nil {
		return FileInfo{}, err
	}
	return out, nil
}

// GetFile calls GET /files/<path>, returning the raw byte content.
func (c *Client) GetFile(path string) ([]byte, error) {
	body, _, err := c.doRaw(http.MethodGet, urlPath("files", path), nil, "")
	if err != nil {
		return nil, err
	}
	return body, nil
}

// PutFile calls PUT /files/<path>?permissions=<mode>, writing content as
// the new (or overwriting) body of the file.
func (c *Client) PutFile(path string, content []byte, mode uint32) error {
	target := urlPath("files", path)
	if mode != 0 {
		target = fmt.Sprintf("%s?permissions=%03o", target, mode)
	}
	_, _, err := c.doRawBytes(http.MethodPut, target, content)
	return err
}

// doRawBytes is doRaw specialized for a []byte body, avoiding an
// io.Reader wrapper allocation at each call site.
func (c *Client) doRawBytes(method, path string, body []byte) ([]byte, http.Header, error) {
	return c.doRaw(method, path, byteReader(body), "application/octet-stream")
}

// DeleteFile calls DELETE /files/<path>, removing a file or directory.
func (c *Client) DeleteFile(path string) error {
	_, _, err := c.doRaw(http.MethodDelete, urlPath("files", path), nil, "")
	return err
}

// Mkdir calls POST /mkdir/<path>?permissions=<mode>.
func (c *Client) Mkdir(path string, mode uint32) error {
	target := urlPath("mkdir", path)
	if mode != 0 {
		target = fmt.Sprintf("%s?permissions=%03o", target, mode)
	}
	_, _, err := c.doRaw(http.MethodPost, target, nil, "")
	return err
}
