package pgtable

import (
	"context"
	"io/fs"
	"path"
	"strings"
)

// ApplyFS applies every *.sql file in dir of fsys in lexical order of file
// name. The migration name is the file name without extension. It stops at
// the first failure and returns the names applied by this call.
func (m *Migrations) ApplyFS(ctx context.Context, conn *OwnedConn, fsys fs.FS, dir string) (applied []string, err error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		var script []byte
		script, err = fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return
		}
		name := strings.TrimSuffix(entry.Name(), ".sql")
		var ok bool
		ok, err = m.apply(ctx, conn, name, string(script))
		if err != nil {
			return
		}
		if ok {
			applied = append(applied, name)
		}
	}
	return
}
