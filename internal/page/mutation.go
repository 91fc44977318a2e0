package page

import "golang.org/x/net/html"

// MutationKind classifies a mutation record.
type MutationKind int

const (
	// ChildList records nodes added to or removed from Target.
	ChildList MutationKind = iota
	// CharacterData records a change to the data of text node Target.
	CharacterData
	// Attributes records a change to attribute Attribute of Target.
	Attributes
)

func (k MutationKind) String() string {
	switch k {
	case ChildList:
		return "childList"
	case CharacterData:
		return "characterData"
	case Attributes:
		return "attributes"
	default:
		return "unknown"
	}
}

// Mutation is one structural change made through a Document.
type Mutation struct {
	Target    *html.Node
	Attribute string
	Added     []*html.Node
	Removed   []*html.Node
	Kind      MutationKind
}
