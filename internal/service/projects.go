package service

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sparkmates/sparkmates/internal/db"
)

// defaultProjectLength is the planned duration of a project created
// without an end date.
const defaultProjectLength = 90 * 24 * time.Hour

type Projects struct {
	*base
	notify *Notifications
}

type ProjectFilter struct {
	Status   db.ProjectStatus
	Category string
	Search   string
}

type ProjectInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	CreatorID   string           `json:"creatorId"`
	Category    string           `json:"category"`
	Status      db.ProjectStatus `json:"status"`
	Progress    int              `json:"progress"`
	StartDate   *time.Time       `json:"startDate"`
	EndDate     *time.Time       `json:"endDate"`
	IdeaID      string           `json:"ideaId"`
	Members     []db.Member      `json:"members"`
	Tags        []string         `json:"tags"`
	Tasks       []TaskInput      `json:"tasks"`
}

type TaskInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      db.TaskStatus `json:"status"`
	AssigneeID  string        `json:"assigneeId"`
	DueDate     *time.Time    `json:"dueDate"`
}

func (p *Projects) GetAll(ctx context.Context, f ProjectFilter) ([]db.Project, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}
	return p.store.ListProjects(ctx, db.ProjectQuery{
		Status:   f.Status,
		Category: f.Category,
		Search:   f.Search,
	})
}

func (p *Projects) GetByID(ctx context.Context, id string) (db.Project, bool, error) {
	return p.store.GetProject(ctx, id)
}

// GetByUser returns the projects userID created or is a member of.
func (p *Projects) GetByUser(ctx context.Context, userID string) ([]db.Project, error) {
	return p.store.ListProjects(ctx, db.ProjectQuery{Member: userID})
}

func (p *Projects) Create(ctx context.Context, in ProjectInput) (db.Project, error) {
	if in.Status == "" {
		in.Status = db.ProjectPlanning
	}
	if !in.Status.Valid() {
		return db.Project{}, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	if in.Progress < 0 || in.Progress > 100 {
		return db.Project{}, fmt.Errorf("%w: progress %d out of range", ErrInvalidInput, in.Progress)
	}

	now := p.stamp()
	start := now
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}
	end := now.Add(defaultProjectLength)
	if in.EndDate != nil {
		end = in.EndDate.UTC()
	}

	project := db.Project{
		Title:       cmp.Or(in.Title, "New Project"),
		Description: in.Description,
		CreatorID:   in.CreatorID,
		Category:    cmp.Or(in.Category, "Other"),
		Status:      in.Status,
		Progress:    in.Progress,
		StartDate:   &start,
		EndDate:     &end,
		IdeaID:      in.IdeaID,
		Members:     in.Members,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	completed := 0
	for _, ti := range in.Tasks {
		t, err := newTask(ti, now)
		if err != nil {
			return db.Project{}, err
		}
		if t.Status == db.TaskCompleted {
			completed++
		}
		project.Tasks = append(project.Tasks, t)
	}
	if len(project.Tasks) > 0 {
		project.Progress = db.Progress(completed, len(project.Tasks))
	}

	project, err := p.store.CreateProject(ctx, project)
	if err != nil {
		return db.Project{}, err
	}
	p.log.WithFields(logrus.Fields{"project": project.ID, "user": project.CreatorID}).Info("project created")
	for _, t := range project.Tasks {
		p.notifyAssignee(ctx, t)
	}
	return project, nil
}

func newTask(in TaskInput, now time.Time) (db.Task, error) {
	if in.Status == "" {
		in.Status = db.TaskPlanned
	}
	if !in.Status.Valid() {
		return db.Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	return db.Task{
		Title:       cmp.Or(in.Title, "New Task"),
		Description: in.Description,
		Status:      in.Status,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
		CreatedAt:   now,
	}, nil
}

// AddMember adds m to the project and invites the new member. Adding a user
// who is already a member changes nothing.
func (p *Projects) AddMember(ctx context.Context, projectID string, m db.Member) (db.Project, error) {
	if m.UserID == "" {
		return db.Project{}, fmt.Errorf("%w: member needs a user id", ErrInvalidInput)
	}
	m.Role = cmp.Or(m.Role, "member")
	project, added, err := p.store.AddProjectMember(ctx, projectID, m)
	if err != nil {
		return db.Project{}, err
	}
	if added {
		p.notify.send(ctx, NotificationInput{
			UserID:    m.UserID,
			Type:      db.NotifyProjectInvite,
			Content:   fmt.Sprintf("You were added to the project %q", project.Title),
			RelatedID: project.ID,
		})
	}
	return project, nil
}

// AddTask appends a task to the project and notifies its assignee.
func (p *Projects) AddTask(ctx context.Context, projectID string, in TaskInput) (db.Task, error) {
	t, err := newTask(in, p.stamp())
	if err != nil {
		return db.Task{}, err
	}
	t.ProjectID = projectID
	t, err = p.store.CreateTask(ctx, t)
	if err != nil {
		return db.Task{}, err
	}
	p.notifyAssignee(ctx, t)
	return t, nil
}

func (p *Projects) notifyAssignee(ctx context.Context, t db.Task) {
	if t.AssigneeID == "" {
		return
	}
	p.notify.send(ctx, NotificationInput{
		UserID:    t.AssigneeID,
		Type:      db.NotifyTaskAssigned,
		Content:   fmt.Sprintf("You were assigned the task %q", t.Title),
		RelatedID: t.ID,
	})
}

// UpdateTaskStatus changes a task's status. The project progress follows
// the share of completed tasks.
func (p *Projects) UpdateTaskStatus(ctx context.Context, projectID, taskID string, status db.TaskStatus) (db.Task, error) {
	if !status.Valid() {
		return db.Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return p.store.UpdateTaskStatus(ctx, projectID, taskID, status)
}
