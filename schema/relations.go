package schema

import "sync"

// Direction of a relation edge relative to its source table.
type Direction string

const (
	// The source table holds the foreign key.
	Forward Direction = `forward`

	// The target table holds the foreign key referencing the source.
	Reverse Direction = `reverse`
)

/*
One edge of the relations graph. For `Forward` edges `FromColumn` is the
foreign key column of `Source`; for `Reverse` edges it's the referenced column
of `Source` and `ToColumn` is the foreign key column of `Target`.
*/
type Edge struct {
	Source     string
	Target     string
	Direction  Direction
	FromColumn string
	ToColumn   string
}

/*
Adjacency list of table relations. Every declared foreign key adds a forward
edge at the referencing table and a reverse edge at the referenced table, so
either side can be resolved. Safe for concurrent use.
*/
type Relations struct {
	lock  sync.RWMutex
	edges map[string][]Edge
	order []string
}

func NewRelations() *Relations { return &Relations{edges: map[string][]Edge{}} }

/*
Declares that `source.fromCol` references `target.toCol`. Redeclaring an
existing edge is a nop.
*/
func (self *Relations) Declare(source, fromCol, target, toCol string) *Relations {
	self.lock.Lock()
	defer self.lock.Unlock()

	if self.edges == nil {
		self.edges = map[string][]Edge{}
	}
	self.add(Edge{Source: source, Target: target, Direction: Forward, FromColumn: fromCol, ToColumn: toCol})
	if source != target || fromCol != toCol {
		self.add(Edge{Source: target, Target: source, Direction: Reverse, FromColumn: toCol, ToColumn: fromCol})
	}
	return self
}

func (self *Relations) add(edge Edge) {
	for _, val := range self.edges[edge.Source] {
		if val == edge {
			return
		}
	}
	if _, ok := self.edges[edge.Source]; !ok {
		self.order = append(self.order, edge.Source)
	}
	self.edges[edge.Source] = append(self.edges[edge.Source], edge)
}

// Edges starting at the table, in declaration order.
func (self *Relations) Edges(source string) []Edge {
	self.lock.RLock()
	defer self.lock.RUnlock()
	return append([]Edge(nil), self.edges[source]...)
}

// Tables with at least one edge, in order of first declaration.
func (self *Relations) Tables() []string {
	self.lock.RLock()
	defer self.lock.RUnlock()
	return append([]string(nil), self.order...)
}

/*
Returns the edge leading from `a` to `b`, regardless of which side declared
the foreign key. Forward edges win when both directions exist.
*/
func (self *Relations) Resolve(a, b string) (Edge, bool) {
	self.lock.RLock()
	defer self.lock.RUnlock()

	var found Edge
	var ok bool
	for _, edge := range self.edges[a] {
		if edge.Target != b {
			continue
		}
		if edge.Direction == Forward {
			return edge, true
		}
		if !ok {
			found, ok = edge, true
		}
	}
	return found, ok
}
