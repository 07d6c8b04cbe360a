package db

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectPaused     ProjectStatus = "paused"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectCompleted, ProjectPaused:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskPlanned    TaskStatus = "planned"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPlanned, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

type NotificationType string

const (
	NotifyNewCollaborator    NotificationType = "NEW_COLLABORATOR"
	NotifyComment            NotificationType = "COMMENT"
	NotifyTaskAssigned       NotificationType = "TASK_ASSIGNED"
	NotifyLike               NotificationType = "LIKE"
	NotifyMessage            NotificationType = "MESSAGE"
	NotifyProjectInvite      NotificationType = "PROJECT_INVITE"
	NotifyIdeaComment        NotificationType = "IDEA_COMMENT"
	NotifyMilestoneCompleted NotificationType = "MILESTONE_COMPLETED"
	NotifyProjectUpdate      NotificationType = "PROJECT_UPDATE"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyNewCollaborator, NotifyComment, NotifyTaskAssigned, NotifyLike, NotifyMessage,
		NotifyProjectInvite, NotifyIdeaComment, NotifyMilestoneCompleted, NotifyProjectUpdate:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	Role      string    `json:"role"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	// PasswordHash is empty for test accounts, which authenticate with the
	// shared test password.
	PasswordHash string `json:"-"`
}

type Idea struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	UserID        string     `json:"userId"`
	Category      string     `json:"category"`
	Tags          []string   `json:"tags"`
	Visibility    Visibility `json:"visibility"`
	Collaborators []string   `json:"collaborators"`
	Likes         int        `json:"likes"`
	Views         int        `json:"views"`
	Comments      int        `json:"comments"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// IsCollaborator reports whether userID owns or collaborates on the idea.
func (i Idea) IsCollaborator(userID string) bool {
	if i.UserID == userID {
		return true
	}
	for _, c := range i.Collaborators {
		if c == userID {
			return true
		}
	}
	return false
}

type Comment struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"ideaId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Member struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	AssigneeID  string     `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	CreatorID   string        `json:"creatorId"`
	Category    string        `json:"category"`
	Status      ProjectStatus `json:"status"`
	Progress    int           `json:"progress"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	EndDate     *time.Time    `json:"endDate,omitempty"`
	IdeaID      string        `json:"ideaId,omitempty"`
	Members     []Member      `json:"members"`
	Tags        []string      `json:"tags"`
	Tasks       []Task        `json:"tasks"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// HasMember reports whether userID created or is a member of the project.
func (p Project) HasMember(userID string) bool {
	if p.CreatorID == userID {
		return true
	}
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

type Conversation struct {
	ID             string    `json:"id"`
	ParticipantIDs []string  `json:"participantIds"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"sender"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Content   string           `json:"content"`
	RelatedID string           `json:"relatedId,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IdeaQuery narrows ListIdeas. Zero fields do not filter.
type IdeaQuery struct {
	Category string
	Tag      string
	// Search matches title, description and tags, case-insensitively.
	Search string
	// Member keeps ideas owned by or shared with this user.
	Member string
	// VisibleTo hides private ideas this user neither owns nor collaborates on.
	VisibleTo string
	// PublicOnly hides every private idea.
	PublicOnly bool
}

// ProjectQuery narrows ListProjects. Zero fields do not filter.
type ProjectQuery struct {
	Status   ProjectStatus
	Category string
	Search   string
	// Member keeps projects created by or including this user.
	Member string
}
