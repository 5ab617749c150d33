package resolve

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/corpintel/edgargraph/internal/errors"
	"github.com/corpintel/edgargraph/internal/logging"
)

// EntityKind distinguishes the two canonical node types names resolve to.
type EntityKind string

const (
	EntityCompany EntityKind = "company"
	EntityPerson  EntityKind = "person"
)

// Entity is a canonical entity already present in the graph.
type Entity struct {
	ID             string
	Kind           EntityKind
	Name           string
	NormalizedName string
	CIK            string // companies only, may be empty
}

// Hints narrow the candidate pool during similarity matching. A party
// mentioned in a filing is far more likely to be an entity already linked
// to that filing's subject than an arbitrary graph node.
type Hints struct {
	SubjectCIK      string // CIK of the filing's subject company
	AccessionNumber string
}

// Directory is the lookup surface the linker resolves against, backed by
// the graph store in production and by a fixture in tests.
type Directory interface {
	// FindExact returns the entity whose normalized name matches exactly,
	// or nil when there is none.
	FindExact(ctx context.Context, kind EntityKind, normalized string) (*Entity, error)

	// Candidates returns entities worth scoring against the raw name,
	// restricted by the hints when the backend can honor them.
	Candidates(ctx context.Context, kind EntityKind, hints Hints) ([]Entity, error)
}

// Resolution methods, recorded on every resolved entity.
const (
	MethodExact      = "exact"
	MethodSimilarity = "similarity"
	MethodCreated    = "created"
)

// ResolvedEntity is the outcome of resolving a raw name. Created is true
// when no confident match existed and a new canonical entity was minted.
type ResolvedEntity struct {
	ID             string
	Kind           EntityKind
	Name           string
	NormalizedName string
	CIK            string
	Created        bool
	Confidence     float64
	Method         string
}

const (
	defaultMinSimilarity   = 0.75
	defaultAmbiguityMargin = 0.05
	minNameLength          = 3
)

// Linker resolves extracted party names to canonical entities. Results
// are cached per run by normalized name, so the same name always maps to
// the same entity within a run even when it was freshly created.
type Linker struct {
	dir             Directory
	cache           map[string]ResolvedEntity
	minSimilarity   float64
	ambiguityMargin float64
	log             *slog.Logger
}

func NewLinker(dir Directory) *Linker {
	return &Linker{
		dir:             dir,
		cache:           make(map[string]ResolvedEntity),
		minSimilarity:   defaultMinSimilarity,
		ambiguityMargin: defaultAmbiguityMargin,
		log:             logging.Component("resolve.linker"),
	}
}

// Normalize applies the kind-appropriate canonicalization.
func Normalize(kind EntityKind, rawName string) string {
	if kind == EntityPerson {
		return NormalizePersonName(rawName)
	}
	return NormalizeCompanyName(rawName)
}

// Resolve maps a raw extracted name to a canonical entity. The sequence
// is: per-run cache, exact normalized match, similarity match over the
// hinted candidate pool, then creation of a new entity. A near-tie
// between the top two similarity candidates is never auto-resolved; it
// returns a CategoryAmbiguous error so the caller can route the
// candidate to review.
func (l *Linker) Resolve(ctx context.Context, kind EntityKind, rawName string, hints Hints) (ResolvedEntity, error) {
	normalized := Normalize(kind, rawName)
	if len(normalized) < minNameLength {
		return ResolvedEntity{}, errors.Malformedf("name %q too short to resolve", rawName)
	}

	cacheKey := string(kind) + "|" + normalized
	if cached, ok := l.cache[cacheKey]; ok {
		return cached, nil
	}

	if exact, err := l.dir.FindExact(ctx, kind, normalized); err != nil {
		return ResolvedEntity{}, errors.Storef(err, "exact lookup for %q", normalized)
	} else if exact != nil {
		resolved := fromEntity(*exact, MethodExact, 1.0)
		l.cache[cacheKey] = resolved
		return resolved, nil
	}

	candidates, err := l.dir.Candidates(ctx, kind, hints)
	if err != nil {
		return ResolvedEntity{}, errors.Storef(err, "candidate lookup for %q", normalized)
	}

	best, second := l.score(normalized, candidates)
	if best != nil && best.score >= l.minSimilarity {
		if second != nil && best.score-second.score < l.ambiguityMargin {
			return ResolvedEntity{}, errors.Ambiguousf(
				"name %q matches both %q (%.2f) and %q (%.2f)",
				rawName, best.entity.Name, best.score, second.entity.Name, second.score)
		}
		l.log.Debug("similarity match",
			"raw", rawName, "matched", best.entity.Name, "score", best.score)
		resolved := fromEntity(best.entity, MethodSimilarity, best.score)
		l.cache[cacheKey] = resolved
		return resolved, nil
	}

	resolved := ResolvedEntity{
		ID:             uuid.NewString(),
		Kind:           kind,
		Name:           strings.TrimSpace(rawName),
		NormalizedName: normalized,
		Created:        true,
		Confidence:     1.0,
		Method:         MethodCreated,
	}
	l.log.Debug("created entity", "kind", kind, "name", resolved.Name, "id", resolved.ID)
	l.cache[cacheKey] = resolved
	return resolved, nil
}

type scored struct {
	entity Entity
	score  float64
}

// score ranks candidates by similarity to the normalized name and
// returns the top two.
func (l *Linker) score(normalized string, candidates []Entity) (best, second *scored) {
	results := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		cn := c.NormalizedName
		if cn == "" {
			cn = Normalize(c.Kind, c.Name)
		}
		s := Similarity(normalized, cn)
		if s <= 0 {
			continue
		}
		results = append(results, scored{entity: c, score: s})
	}
	if len(results) == 0 {
		return nil, nil
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		// Shorter names win ties so "Apple" beats "Apple Operations".
		return len(results[i].entity.NormalizedName) < len(results[j].entity.NormalizedName)
	})
	best = &results[0]
	if len(results) > 1 {
		second = &results[1]
	}
	return best, second
}

func fromEntity(e Entity, method string, confidence float64) ResolvedEntity {
	normalized := e.NormalizedName
	if normalized == "" {
		normalized = Normalize(e.Kind, e.Name)
	}
	return ResolvedEntity{
		ID:             e.ID,
		Kind:           e.Kind,
		Name:           e.Name,
		NormalizedName: normalized,
		CIK:            e.CIK,
		Confidence:     confidence,
		Method:         method,
	}
}
