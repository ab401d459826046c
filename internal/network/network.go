// Package network serves graph queries over the people graph: BFS
// shortest paths, neighborhood expansion, and connector detection. The
// edges are co-employment and co-contribution, derived from relational
// rows at query time.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talentgraph/talentgraph-go/internal/cache"
	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// Backend is the storage surface graph queries need. *storage.Store
// satisfies it.
type Backend interface {
	CoworkerNeighbors(ctx context.Context, personID uuid.UUID, limit int) ([]storage.Neighbor, error)
	CollaboratorNeighbors(ctx context.Context, personID uuid.UUID, limit int) ([]storage.Neighbor, error)
	GetCachedPath(ctx context.Context, source, target uuid.UUID, maxAge time.Duration) (*models.NetworkPath, error)
	PutCachedPath(ctx context.Context, p *models.NetworkPath) error
	GetPerson(ctx context.Context, id uuid.UUID) (*models.Person, error)
}

const (
	// DefaultMaxDepth bounds BFS expansion.
	DefaultMaxDepth = 3
	// neighborCap bounds each edge kind per expansion step.
	neighborCap = 50
	// pathCacheAge is how long a persisted BFS result stays valid.
	pathCacheAge = 7 * 24 * time.Hour

	minCenters = 2
	maxCenters = 4
)

// Node is a person on a returned graph, with display fields resolved.
type Node struct {
	PersonID uuid.UUID `json:"person_id"`
	FullName string    `json:"full_name,omitempty"`
	Headline string    `json:"headline,omitempty"`
	Location string    `json:"location,omitempty"`
	Degree   int       `json:"degree"`
}

// Edge is one hop: coworker at a company or collaborator on a repo.
type Edge struct {
	From     uuid.UUID `json:"from"`
	To       uuid.UUID `json:"to"`
	EdgeType string    `json:"edge_type"`
	Via      string    `json:"via"`
}

// Path is a BFS result. Length counts edges.
type Path struct {
	Nodes  []Node `json:"nodes"`
	Edges  []Edge `json:"edges"`
	Length int    `json:"length"`
	Cached bool   `json:"cached"`
}

// Graph is a neighborhood query result.
type Graph struct {
	CenterPersonID uuid.UUID `json:"center_person_id"`
	MaxDegree      int       `json:"max_degree"`
	Nodes          []Node    `json:"nodes"`
	Edges          []Edge    `json:"edges"`
}

// Connector is a person who is a first-degree neighbor of two or more
// centers.
type Connector struct {
	Node     Node        `json:"node"`
	Connects []uuid.UUID `json:"connects"`
}

// Service answers graph queries, caching responses in Redis when a
// client is configured (nil disables it).
type Service struct {
	backend Backend
	cache   *cache.Client
	logger  *slog.Logger
}

// NewService creates a graph query service.
func NewService(backend Backend, cacheClient *cache.Client) *Service {
	return &Service{
		backend: backend,
		cache:   cacheClient,
		logger:  slog.Default().With("component", "network"),
	}
}

// ShortestPath finds the shortest connection between two people within
// maxDepth hops (0 means the default). Returns nil when no path exists;
// negative results are never cached.
func (s *Service) ShortestPath(ctx context.Context, source, target uuid.UUID, maxDepth int) (*Path, error) {
	if source == target {
		return nil, apperrors.Validationf("source and target are the same person")
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	key := cache.Key("path", source.String(), target.String(), fmt.Sprint(maxDepth))
	var cached Path
	if s.cache.Get(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	if row, err := s.backend.GetCachedPath(ctx, source, target, pathCacheAge); err == nil {
		var p Path
		if err := json.Unmarshal(row.PathData, &p); err == nil {
			p.Length = row.PathLength
			p.Cached = true
			return &p, nil
		}
		s.logger.Warn("cached path corrupt, recomputing", "source", source, "target", target)
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("path cache lookup: %w", err)
	}

	p, err := s.bfs(ctx, source, target, maxDepth)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal path: %w", err)
	}
	if err := s.backend.PutCachedPath(ctx, &models.NetworkPath{
		SourcePersonID: source,
		TargetPersonID: target,
		PathLength:     p.Length,
		PathData:       data,
	}); err != nil {
		s.logger.Warn("path cache write failed", "error", err)
	}
	s.cache.Set(ctx, key, p, cache.TTLPath)
	return p, nil
}

// step records how BFS reached a person, for path reconstruction.
type step struct {
	parent uuid.UUID
	edge   storage.Neighbor
}

func (s *Service) bfs(ctx context.Context, source, target uuid.UUID, maxDepth int) (*Path, error) {
	visited := map[uuid.UUID]bool{source: true}
	parents := make(map[uuid.UUID]step)
	frontier := []uuid.UUID{source}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []uuid.UUID
		for _, current := range frontier {
			neighbors, err := s.neighbors(ctx, current)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n.PersonID] {
					continue
				}
				visited[n.PersonID] = true
				parents[n.PersonID] = step{parent: current, edge: n}
				if n.PersonID == target {
					return s.buildPath(ctx, source, target, parents)
				}
				next = append(next, n.PersonID)
			}
		}
		frontier = next
	}
	return nil, nil
}

func (s *Service) neighbors(ctx context.Context, personID uuid.UUID) ([]storage.Neighbor, error) {
	coworkers, err := s.backend.CoworkerNeighbors(ctx, personID, neighborCap)
	if err != nil {
		return nil, fmt.Errorf("coworker neighbors: %w", err)
	}
	collaborators, err := s.backend.CollaboratorNeighbors(ctx, personID, neighborCap)
	if err != nil {
		return nil, fmt.Errorf("collaborator neighbors: %w", err)
	}
	return append(coworkers, collaborators...), nil
}

// buildPath walks the parent chain target-to-source, then reverses and
// enriches each node with display fields.
func (s *Service) buildPath(ctx context.Context, source, target uuid.UUID, parents map[uuid.UUID]step) (*Path, error) {
	var ids []uuid.UUID
	var edges []Edge
	for current := target; current != source; {
		st := parents[current]
		ids = append(ids, current)
		edges = append(edges, Edge{
			From:     st.parent,
			To:       current,
			EdgeType: st.edge.EdgeType,
			Via:      st.edge.Via,
		})
		current = st.parent
	}
	ids = append(ids, source)

	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	nodes := make([]Node, 0, len(ids))
	for i, id := range ids {
		node, err := s.node(ctx, id)
		if err != nil {
			return nil, err
		}
		node.Degree = i
		nodes = append(nodes, node)
	}
	return &Path{Nodes: nodes, Edges: edges, Length: len(edges)}, nil
}

func (s *Service) node(ctx context.Context, id uuid.UUID) (Node, error) {
	person, err := s.backend.GetPerson(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return Node{PersonID: id}, nil
		}
		return Node{}, fmt.Errorf("load person %s: %w", id, err)
	}
	return Node{
		PersonID: id,
		FullName: models.StrVal(person.FullName),
		Headline: models.StrVal(person.Headline),
		Location: models.StrVal(person.Location),
	}, nil
}

// Neighborhood returns the graph around a center out to maxDegree (1 or
// 2). Limit caps first-degree fan-out; second-degree expansion reuses
// the per-node neighbor cap.
func (s *Service) Neighborhood(ctx context.Context, center uuid.UUID, maxDegree, limit int) (*Graph, error) {
	if maxDegree < 1 {
		maxDegree = 1
	}
	if maxDegree > 2 {
		return nil, apperrors.Validationf("max degree is 2, got %d", maxDegree)
	}
	if limit <= 0 {
		limit = neighborCap
	}

	key := cache.Key("neighborhood", center.String(), fmt.Sprint(maxDegree), fmt.Sprint(limit))
	var cached Graph
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	g := &Graph{CenterPersonID: center, MaxDegree: maxDegree}
	centerNode, err := s.node(ctx, center)
	if err != nil {
		return nil, err
	}
	g.Nodes = append(g.Nodes, centerNode)

	seen := map[uuid.UUID]bool{center: true}
	first, err := s.neighbors(ctx, center)
	if err != nil {
		return nil, err
	}
	if len(first) > limit {
		first = first[:limit]
	}

	var firstIDs []uuid.UUID
	for _, n := range first {
		g.Edges = append(g.Edges, Edge{From: center, To: n.PersonID, EdgeType: n.EdgeType, Via: n.Via})
		if seen[n.PersonID] {
			continue
		}
		seen[n.PersonID] = true
		node, err := s.node(ctx, n.PersonID)
		if err != nil {
			return nil, err
		}
		node.Degree = 1
		g.Nodes = append(g.Nodes, node)
		firstIDs = append(firstIDs, n.PersonID)
	}

	if maxDegree >= 2 {
		for _, id := range firstIDs {
			second, err := s.neighbors(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, n := range second {
				if n.PersonID == center {
					continue
				}
				g.Edges = append(g.Edges, Edge{From: id, To: n.PersonID, EdgeType: n.EdgeType, Via: n.Via})
				if seen[n.PersonID] {
					continue
				}
				seen[n.PersonID] = true
				node, err := s.node(ctx, n.PersonID)
				if err != nil {
					return nil, err
				}
				node.Degree = 2
				g.Nodes = append(g.Nodes, node)
			}
		}
	}

	s.cache.Set(ctx, key, g, cache.TTLNeighborhood)
	return g, nil
}

// isNotFound accepts both the storage sentinel and the kinded error.
func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || apperrors.IsNotFound(err)
}

// Connectors finds people who are first-degree neighbors of at least
// two of the given centers (2 to 4 centers).
func (s *Service) Connectors(ctx context.Context, centers []uuid.UUID) ([]Connector, error) {
	if len(centers) < minCenters || len(centers) > maxCenters {
		return nil, apperrors.Validationf("connector detection takes %d to %d centers, got %d",
			minCenters, maxCenters, len(centers))
	}

	isCenter := make(map[uuid.UUID]bool, len(centers))
	for _, c := range centers {
		isCenter[c] = true
	}

	// For each candidate, which centers reach it in one hop.
	reachedBy := make(map[uuid.UUID][]uuid.UUID)
	for _, center := range centers {
		neighbors, err := s.neighbors(ctx, center)
		if err != nil {
			return nil, err
		}
		seen := make(map[uuid.UUID]bool)
		for _, n := range neighbors {
			if isCenter[n.PersonID] || seen[n.PersonID] {
				continue
			}
			seen[n.PersonID] = true
			reachedBy[n.PersonID] = append(reachedBy[n.PersonID], center)
		}
	}

	var connectors []Connector
	for id, reached := range reachedBy {
		if len(reached) < 2 {
			continue
		}
		node, err := s.node(ctx, id)
		if err != nil {
			return nil, err
		}
		node.Degree = 1
		connectors = append(connectors, Connector{Node: node, Connects: reached})
	}
	return connectors, nil
}
