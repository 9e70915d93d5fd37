package ports

import "github.com/aretw0/patchbay/pkg/domain"

// GraphEditor is the mutation surface of the graph. Every successful call
// publishes a new snapshot; a rejected call publishes nothing.
type GraphEditor interface {
	Snapshot() *domain.Snapshot

	AddNode(defID string, pos domain.Position) (domain.Node, error)
	AddNodeWithID(id, defID string, pos domain.Position) (domain.Node, error)
	DeleteNode(id string) error
	Move(id string, pos domain.Position) error
	EditScript(id, script string) error
	SetParam(id, key string, value float64) error

	Connect(source, target string, inputIndex int) (domain.Edge, error)
	ConnectParam(source, target, key string) (domain.Edge, error)
	RemoveEdge(edgeID string) error
}
