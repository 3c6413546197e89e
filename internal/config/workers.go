package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"task-dispatch/internal/domain"
)

// ParseWorkerSeeds reads the startup worker list. A string value is either a
// JSON array of {id, label|name, url} objects or a comma separated list of
// endpoints; a config-file value may also be a native list of objects.
func ParseWorkerSeeds(raw any) ([]domain.WorkerSeed, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return parseWorkerSeedString(v), nil
	case []any:
		return seedsFromList(v), nil
	case []map[string]any:
		list := make([]any, len(v))
		for i, m := range v {
			list[i] = m
		}
		return seedsFromList(list), nil
	default:
		return nil, fmt.Errorf("unsupported workers value of type %T", raw)
	}
}

func parseWorkerSeedString(raw string) []domain.WorkerSeed {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		if list, ok := parsed.([]any); ok {
			return seedsFromList(list)
		}
	}

	var endpoints []string
	for _, part := range strings.Split(raw, ",") {
		if u := domain.NormalizeEndpoint(part); u != "" {
			endpoints = append(endpoints, u)
		}
	}
	seeds := make([]domain.WorkerSeed, len(endpoints))
	for i, u := range endpoints {
		seeds[i] = domain.WorkerSeed{
			ID:       fmt.Sprintf("env-%d", i+1),
			Label:    fmt.Sprintf("worker-%d", i+1),
			Endpoint: u,
		}
	}
	return seeds
}

// seedsFromList skips entries that are not objects or have no url. Default ids
// use the entry's position in the list.
func seedsFromList(list []any) []domain.WorkerSeed {
	var seeds []domain.WorkerSeed
	for i, item := range list {
		m, ok := toStringMap(item)
		if !ok {
			continue
		}
		id := scalarString(m["id"])
		if id == "" {
			id = fmt.Sprintf("env-%d", i+1)
		}
		label := scalarString(m["label"])
		if label == "" {
			label = scalarString(m["name"])
		}
		if label == "" {
			label = id
		}
		u := domain.NormalizeEndpoint(scalarString(m["url"]))
		if u == "" {
			continue
		}
		seeds = append(seeds, domain.WorkerSeed{ID: id, Label: label, Endpoint: u})
	}
	return seeds
}

func toStringMap(item any) (map[string]any, bool) {
	switch m := item.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
