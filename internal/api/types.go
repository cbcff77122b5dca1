package api

type NextPage struct {
	Offset string `json:"offset"`
	Path   string `json:"path"`
	URI    string `json:"uri"`
}

// Ref is the compact {gid, name} shape the service uses for nested objects.
type Ref struct {
	GID  string `json:"gid"`
	Name string `json:"name,omitempty"`
}

type Task struct {
	GID         string `json:"gid"`
	Name        string `json:"name"`
	Notes       string `json:"notes,omitempty"`
	Completed   bool   `json:"completed"`
	CompletedAt string `json:"completed_at,omitempty"`
	DueOn       string `json:"due_on,omitempty"`
	DueAt       string `json:"due_at,omitempty"`
	Assignee    *Ref   `json:"assignee,omitempty"`
	Workspace   *Ref   `json:"workspace,omitempty"`
	Projects    []Ref  `json:"projects,omitempty"`
	Tags        []Ref  `json:"tags,omitempty"`
	Parent      *Ref   `json:"parent,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	ModifiedAt  string `json:"modified_at,omitempty"`
}

type Tag struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

type Section struct {
	GID     string `json:"gid"`
	Name    string `json:"name"`
	Project *Ref   `json:"project,omitempty"`
}

type User struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Workspace struct {
	GID            string `json:"gid"`
	Name           string `json:"name"`
	IsOrganization bool   `json:"is_organization"`
}

type Project struct {
	GID       string `json:"gid"`
	Name      string `json:"name"`
	Archived  bool   `json:"archived"`
	Workspace *Ref   `json:"workspace,omitempty"`
}

type Story struct {
	GID       string `json:"gid"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
}
