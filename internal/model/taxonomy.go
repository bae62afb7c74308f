package model

// Ref is an id/name pair pointing at a taxonomy node.
type Ref struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Industry is the top level of the taxonomy tree.
type Industry struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Segments []Segment `json:"segments" yaml:"segments"`
}

// Segment groups use cases within an industry.
type Segment struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	UseCases []UseCaseEntry `json:"use_cases" yaml:"use_cases"`
}

// UseCaseEntry is a use case as declared inside the taxonomy tree.
type UseCaseEntry struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
}

// UseCase is a resolved use case carrying the industry and segment that
// declare it.
type UseCase struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Industry    Ref      `json:"industry"`
	Segment     Ref      `json:"segment"`
}
