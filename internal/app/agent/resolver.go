package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	coreagent "github.com/agisilaos/asana-planner/internal/agent"
	"github.com/agisilaos/asana-planner/internal/api"
	appassignees "github.com/agisilaos/asana-planner/internal/app/assignees"
	apprefs "github.com/agisilaos/asana-planner/internal/app/refs"
	appsections "github.com/agisilaos/asana-planner/internal/app/sections"
	apptags "github.com/agisilaos/asana-planner/internal/app/tags"
)

// Gateway is the part of the remote API the engine uses. *api.Client
// satisfies it.
type Gateway interface {
	api.Pager
	Get(ctx context.Context, path string, query url.Values, out any) (string, error)
	Post(ctx context.Context, path string, body any, out any) (string, error)
	Put(ctx context.Context, path string, body any, out any) (string, error)
}

type EntityKind string

const (
	EntityTag     EntityKind = "tag"
	EntitySection EntityKind = "section"
	EntityUser    EntityKind = "user"
)

func (k EntityKind) Creatable() bool {
	return k == EntityTag || k == EntitySection
}

func (k EntityKind) scopeLabel(scope string) string {
	if k == EntitySection {
		return "project " + scope
	}
	return "workspace " + scope
}

type Reference struct {
	Kind    EntityKind `json:"kind"`
	Name    string     `json:"name"`
	Scope   string     `json:"scope"`
	GID     string     `json:"gid"`
	Created bool       `json:"created,omitempty"`
}

type ResolutionStatus int

const (
	StatusAbsent ResolutionStatus = iota
	StatusFound
)

// Resolution separates "the entity does not exist" from "the listing failed
// and was treated as empty". Degraded is set in the second case.
type Resolution struct {
	Ref      Reference
	Status   ResolutionStatus
	Degraded error
}

func (r Resolution) Found() bool {
	return r.Status == StatusFound
}

type scopeKey struct {
	kind  EntityKind
	scope string
}

// Resolver maps human-readable names to gids for the lifetime of one batch.
// It is not safe for concurrent use; a batch runs its actions sequentially.
type Resolver struct {
	gw      Gateway
	logger  *slog.Logger
	entries map[scopeKey]map[string]string
	listed  map[scopeKey]bool
}

func NewResolver(gw Gateway, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		gw:      gw,
		logger:  logger,
		entries: map[scopeKey]map[string]string{},
		listed:  map[scopeKey]bool{},
	}
}

// Find looks a name up without ever creating anything.
func (r *Resolver) Find(ctx context.Context, kind EntityKind, name, scope string) (Resolution, error) {
	name = strings.TrimSpace(name)
	scope = strings.TrimSpace(scope)
	ref := Reference{Kind: kind, Name: name, Scope: scope}
	if name == "" {
		return Resolution{Ref: ref}, fmt.Errorf("%s name is required", kind)
	}
	if scope == "" {
		return Resolution{Ref: ref}, fmt.Errorf("%s lookup for %q requires a scope", kind, name)
	}
	sk := scopeKey{kind: kind, scope: scope}
	key := apprefs.FoldName(name)
	if gid, ok := r.entries[sk][key]; ok {
		ref.GID = gid
		return Resolution{Ref: ref, Status: StatusFound}, nil
	}
	var degraded error
	if !r.listed[sk] {
		index, err := r.list(ctx, kind, scope)
		if err != nil {
			degraded = err
			r.logger.WarnContext(ctx, "entity listing failed; treating as empty",
				"kind", kind, "name", name, "scope", scope, "error", err)
		} else {
			r.merge(sk, index)
			r.listed[sk] = true
		}
	}
	if gid, ok := r.entries[sk][key]; ok {
		ref.GID = gid
		return Resolution{Ref: ref, Status: StatusFound}, nil
	}
	return Resolution{Ref: ref, Status: StatusAbsent, Degraded: degraded}, nil
}

// ResolveOrCreate returns the gid for name within scope, creating the entity
// when it is absent and the kind allows creation. Users are never created.
func (r *Resolver) ResolveOrCreate(ctx context.Context, kind EntityKind, name, scope string) (Reference, error) {
	res, err := r.Find(ctx, kind, name, scope)
	if err != nil {
		return res.Ref, err
	}
	if res.Found() {
		return res.Ref, nil
	}
	if !kind.Creatable() {
		return res.Ref, &coreagent.NotFoundError{Entity: string(kind), Name: res.Ref.Name, Scope: kind.scopeLabel(res.Ref.Scope)}
	}
	gid, err := r.create(ctx, kind, res.Ref.Name, res.Ref.Scope)
	if err != nil {
		return res.Ref, fmt.Errorf("create %s %q: %w", kind, res.Ref.Name, err)
	}
	ref := res.Ref
	ref.GID = gid
	ref.Created = true
	r.merge(scopeKey{kind: kind, scope: ref.Scope}, map[string]string{apprefs.FoldName(ref.Name): gid})
	r.logger.DebugContext(ctx, "entity created", "kind", kind, "name", ref.Name, "scope", ref.Scope, "gid", gid)
	return ref, nil
}

func (r *Resolver) merge(sk scopeKey, index map[string]string) {
	bucket := r.entries[sk]
	if bucket == nil {
		bucket = map[string]string{}
		r.entries[sk] = bucket
	}
	for k, v := range index {
		if _, exists := bucket[k]; !exists {
			bucket[k] = v
		}
	}
}

func (r *Resolver) list(ctx context.Context, kind EntityKind, scope string) (map[string]string, error) {
	switch kind {
	case EntityTag:
		items, err := api.ListAll[api.Tag](ctx, r.gw, apptags.ListPath(scope), apptags.BuildListQuery())
		if err != nil {
			return nil, err
		}
		return apprefs.IndexByName(items, func(t api.Tag) string { return t.Name }, func(t api.Tag) string { return t.GID }), nil
	case EntitySection:
		items, err := api.ListAll[api.Section](ctx, r.gw, appsections.ListPath(scope), appsections.BuildListQuery())
		if err != nil {
			return nil, err
		}
		return apprefs.IndexByName(items, func(s api.Section) string { return s.Name }, func(s api.Section) string { return s.GID }), nil
	case EntityUser:
		items, err := api.ListAll[api.User](ctx, r.gw, appassignees.ListPath(scope), appassignees.BuildListQuery())
		if err != nil {
			return nil, err
		}
		return apprefs.IndexByName(items, func(u api.User) string { return u.Email }, func(u api.User) string { return u.GID }), nil
	default:
		return nil, fmt.Errorf("unsupported entity kind %q", kind)
	}
}

func (r *Resolver) create(ctx context.Context, kind EntityKind, name, scope string) (string, error) {
	var created struct {
		GID string `json:"gid"`
	}
	switch kind {
	case EntityTag:
		body, err := apptags.BuildCreatePayload(scope, name)
		if err != nil {
			return "", err
		}
		if _, err := r.gw.Post(ctx, "/tags", body, &created); err != nil {
			return "", err
		}
	case EntitySection:
		body, err := appsections.BuildCreatePayload(name)
		if err != nil {
			return "", err
		}
		if _, err := r.gw.Post(ctx, appsections.CreatePath(scope), body, &created); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%s entities cannot be created", kind)
	}
	if strings.TrimSpace(created.GID) == "" {
		return "", errors.New("create response has no gid")
	}
	return created.GID, nil
}
