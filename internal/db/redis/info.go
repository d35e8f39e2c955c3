package redis

import (
	"bufio"
	"context"
	"strings"

	"github.com/kailas-cloud/aisearch/internal/db"
)

// ServerInfo identifies the server via INFO server and lists loaded modules.
// Valkey answers with valkey_version (and keeps redis_version for compatibility),
// so the valkey fields take precedence.
func (s *Store) ServerInfo(ctx context.Context) (*db.ServerInfo, error) {
	raw, err := s.command(ctx, db.OpInfo, "server").ToString()
	if err != nil {
		return nil, opError(db.OpInfo, "server", err)
	}
	info := parseInfoServer(raw)

	mods, err := s.moduleList(ctx)
	if err != nil {
		return nil, err
	}
	info.Modules = mods
	return info, nil
}

func (s *Store) moduleList(ctx context.Context) ([]string, error) {
	entries, err := s.command(ctx, db.OpModuleList).ToArray()
	if err != nil {
		return nil, opError(db.OpModuleList, "", err)
	}

	mods := make([]string, 0, len(entries))
	for _, e := range entries {
		fields, err := e.ToArray()
		if err != nil {
			continue
		}
		if name, ok := parseFieldPairs(fields)["name"]; ok {
			mods = append(mods, strings.ToLower(name))
		}
	}
	return mods, nil
}

func parseInfoServer(raw string) *db.ServerInfo {
	kv := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if ok {
			kv[k] = v
		}
	}

	info := &db.ServerInfo{Server: "redis", Version: kv["redis_version"]}
	if v, ok := kv["valkey_version"]; ok {
		info.Server = "valkey"
		info.Version = v
	} else if kv["server_name"] == "valkey" {
		info.Server = "valkey"
	}
	return info
}
