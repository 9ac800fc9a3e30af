package transfer

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/goferry/pkg/match"
	"github.com/3leaps/goferry/pkg/provider"
	"github.com/3leaps/goferry/pkg/staging"
)

// TransferItem is one file's worth of work. Items are immutable once the
// plan is built.
type TransferItem struct {
	SourcePath  string
	StagingPath string // empty for single-stage transfers
	DestPath    string
	Size        int64
}

// Plan is the ordered, read-only list of items for one invocation.
type Plan struct {
	SourceRoot string
	DestRoot   string
	Items      []TransferItem
	Dirs       []string
	TotalSize  int64

	// Excluded counts files dropped by exclude patterns.
	Excluded int
}

// Len returns the number of items.
func (p *Plan) Len() int { return len(p.Items) }

// PlanOptions selects the variant a plan is built for.
type PlanOptions struct {
	// Staging, when set, makes a two-stage plan: every item gets a staging
	// path and the staging tree is rebuilt from scratch.
	Staging *staging.Area

	// Dest, when set, is listed under the destination root and must be
	// empty. Single-stage transfers use it; the pipeline does not.
	Dest provider.Lister

	// Excludes are doublestar patterns matched against the path relative
	// to the source root. Patterns without a slash also match base names.
	Excludes []string

	// Log receives staging warnings. Nil discards them.
	Log *zap.Logger
}

// BuildPlan enumerates sourceRoot and maps every file below it to
// destRoot.
//
// It returns *EnumerationError when listing fails or finds no files, and
// *PreconditionError when opts.Dest is set and already holds files.
func BuildPlan(ctx context.Context, src provider.Lister, sourceRoot, destRoot string, opts PlanOptions) (*Plan, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	matcher, err := match.New(match.Config{Excludes: opts.Excludes})
	if err != nil {
		return nil, fmt.Errorf("invalid exclude: %w", err)
	}

	entries, err := src.ListRecursive(ctx, sourceRoot)
	if err != nil {
		return nil, &EnumerationError{Root: sourceRoot, Err: err}
	}

	plan := &Plan{SourceRoot: sourceRoot, DestRoot: destRoot}
	for _, e := range entries {
		rel, ok := relPath(e.Path, sourceRoot)
		if !ok {
			log.Warn("Listing returned a path outside the source root",
				zap.String("root", sourceRoot), zap.String("path", e.Path))
			continue
		}
		if e.IsDir() {
			plan.Dirs = append(plan.Dirs, e.Path)
			continue
		}
		if !matcher.Match(rel) {
			plan.Excluded++
			continue
		}
		item := TransferItem{
			SourcePath: e.Path,
			DestPath:   joinDest(destRoot, rel),
			Size:       e.Size,
		}
		if opts.Staging != nil {
			item.StagingPath = opts.Staging.Path(e.Path)
		}
		plan.Items = append(plan.Items, item)
		plan.TotalSize += e.Size
	}

	if len(plan.Items) == 0 {
		return nil, &EnumerationError{Root: sourceRoot}
	}

	if opts.Dest != nil {
		existing, err := opts.Dest.ListRecursive(ctx, destRoot)
		if err != nil {
			return nil, fmt.Errorf("list destination %s: %w", destRoot, err)
		}
		files := 0
		for _, e := range existing {
			if !e.IsDir() {
				files++
			}
		}
		if files > 0 {
			return nil, &PreconditionError{Dest: destRoot, Existing: files}
		}
	}

	if opts.Staging != nil {
		for _, werr := range rebuildStaging(opts.Staging, plan) {
			log.Warn("Staging setup", zap.Error(werr))
		}
	}

	return plan, nil
}

// rebuildStaging wipes the staging area and mirrors the source directory
// tree into it. Failures are returned as warnings.
func rebuildStaging(area *staging.Area, plan *Plan) []error {
	var warnings []error

	if err := area.Reset(area.Root()); err != nil {
		warnings = append(warnings, &LocalIOError{Op: "remove", Path: area.Root(), Err: err})
	}

	seen := make(map[string]struct{})
	mkdir := func(dir string) {
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		if err := area.Mkdir(dir); err != nil {
			warnings = append(warnings, &LocalIOError{Op: "mkdir", Path: dir, Err: err})
		}
	}

	mkdir(area.Root())
	for _, d := range plan.Dirs {
		mkdir(area.Path(d))
	}
	// Object-store sources list no directories, and a file root has no
	// directory entry of its own.
	for _, it := range plan.Items {
		mkdir(path.Dir(it.StagingPath))
	}
	return warnings
}

// MapDest applies the destination mapping: destRoot plus the path of
// sourcePath relative to sourceRoot, or destRoot itself when sourcePath is
// the root.
func MapDest(sourcePath, sourceRoot, destRoot string) string {
	rel, ok := relPath(sourcePath, sourceRoot)
	if !ok {
		return ""
	}
	return joinDest(destRoot, rel)
}

func joinDest(destRoot, rel string) string {
	if rel == "" {
		return destRoot
	}
	return path.Join(destRoot, rel)
}

// relPath returns p relative to root. Leading and trailing slashes are
// ignored so filesystem paths and object keys compare alike.
func relPath(p, root string) (string, bool) {
	p = strings.Trim(p, "/")
	root = strings.Trim(root, "/")
	if root != "" {
		root = path.Clean(root)
	}
	switch {
	case p == root:
		return "", true
	case root == "" || root == ".":
		return p, true
	case strings.HasPrefix(p, root+"/"):
		return p[len(root)+1:], true
	}
	return "", false
}
