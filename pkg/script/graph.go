// Package script models the pre-authored branching dialogue a user
// practices against, and recommends the user's next line from detected
// conversational intent. Graphs are authored outside the core and are
// read-only here: traversed, never mutated.
package script

// Role identifies which side of the conversation a node belongs to.
type Role string

const (
	// RoleHuman marks lines the practicing user delivers.
	RoleHuman Role = "You"
	// RolePersona marks lines belonging to the AI prospect persona.
	RolePersona Role = "Prospect"
)

// Node is one authored line in the dialogue graph. IntentTag optionally
// labels the conversational intent the line answers.
type Node struct {
	ID        string
	Role      Role
	Text      string
	IntentTag string
}

// Edge is a directed branch between two nodes.
type Edge struct {
	From string
	To   string
}

// Graph is a branching script of nodes and directed edges.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Successors returns the nodes reachable from id via one edge, in edge
// order.
func (g Graph) Successors(id string) []Node {
	var out []Node
	for _, e := range g.Edges {
		if e.From != id {
			continue
		}
		if n, ok := g.Node(e.To); ok {
			out = append(out, n)
		}
	}
	return out
}

// NodesByRole returns the graph's nodes with the given role, in graph
// order.
func (g Graph) NodesByRole(role Role) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// Text flattens the whole script into a single string, one line per node.
// Used when handing the script to the feedback endpoint.
func (g Graph) Text() string {
	var out string
	for _, n := range g.Nodes {
		if out != "" {
			out += "\n"
		}
		out += string(n.Role) + ": " + n.Text
	}
	return out
}
