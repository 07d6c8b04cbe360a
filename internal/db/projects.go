package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
)

const projectColumns = `id, title, description, creator_id, category, status, progress, start_date, end_date,
	idea_id, members, tags, created_at, updated_at`

const taskColumns = `id, project_id, title, description, status, assignee_id, due_date, created_at`

func scanProject(row scanner) (Project, error) {
	var p Project
	var status, members, tags, createdAt, updatedAt string
	var startDate, endDate sql.NullString
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.CreatorID, &p.Category, &status, &p.Progress,
		&startDate, &endDate, &p.IdeaID, &members, &tags, &createdAt, &updatedAt)
	if err != nil {
		return Project{}, err
	}
	p.Status = ProjectStatus(status)
	p.StartDate = parseNullTime(startDate)
	p.EndDate = parseNullTime(endDate)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	if p.Members, err = decodeList[Member](members); err != nil {
		return Project{}, err
	}
	if p.Tags, err = decodeList[string](tags); err != nil {
		return Project{}, err
	}
	p.Tasks = []Task{}
	return p, nil
}

func scanTask(row scanner) (Task, error) {
	var t Task
	var status, createdAt string
	var dueDate sql.NullString
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status, &t.AssigneeID, &dueDate, &createdAt); err != nil {
		return Task{}, err
	}
	t.Status = TaskStatus(status)
	t.DueDate = parseNullTime(dueDate)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListProjects returns the projects matching q in insertion order, each
// with its tasks.
func (s *Store) ListProjects(ctx context.Context, q ProjectQuery) ([]Project, error) {
	var where []string
	var args []any

	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		where = append(where, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		pattern := likePattern(q.Search)
		args = append(args, pattern, pattern)
	}
	if q.Member != "" {
		where = append(where, `(creator_id = ?
			OR EXISTS (SELECT 1 FROM json_each(projects.members) WHERE json_extract(value, '$.userId') = ?))`)
		args = append(args, q.Member, q.Member)
	}

	query := `SELECT ` + projectColumns + ` FROM projects`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY rowid`

	projects, err := queryProjects(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	// Rows must be closed before the next query: the pool has one connection.
	for i := range projects {
		if projects[i].Tasks, err = listTasks(ctx, s.db, projects[i].ID); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func queryProjects(ctx context.Context, q queryer, query string, args ...any) ([]Project, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func listTasks(ctx context.Context, q queryer, projectID string) ([]Task, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func getProject(ctx context.Context, q queryer, id string) (Project, bool, error) {
	p, err := scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, false, nil
	}
	if err != nil {
		return Project{}, false, fmt.Errorf("get project %s: %w", id, err)
	}
	if p.Tasks, err = listTasks(ctx, q, id); err != nil {
		return Project{}, false, err
	}
	return p, true, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (Project, bool, error) {
	return getProject(ctx, s.db, id)
}

// CreateProject inserts p together with its tasks. Missing ids are
// allocated.
func (s *Store) CreateProject(ctx context.Context, p Project) (Project, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertProject(ctx, tx, &p)
	})
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

func insertProject(ctx context.Context, tx *sql.Tx, p *Project) error {
	if p.ID == "" {
		id, err := nextID(ctx, tx, "project")
		if err != nil {
			return err
		}
		p.ID = id
	}
	if p.Members == nil {
		p.Members = []Member{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Tasks == nil {
		p.Tasks = []Task{}
	}
	members, err := encodeList(p.Members)
	if err != nil {
		return err
	}
	tags, err := encodeList(p.Tags)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.CreatorID, p.Category, string(p.Status), p.Progress,
		formatNullTime(p.StartDate), formatNullTime(p.EndDate), p.IdeaID, members, tags,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	for i := range p.Tasks {
		p.Tasks[i].ProjectID = p.ID
		if err := insertTask(ctx, tx, &p.Tasks[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertTask(ctx context.Context, tx *sql.Tx, t *Task) error {
	if t.ID == "" {
		id, err := nextID(ctx, tx, "task")
		if err != nil {
			return err
		}
		t.ID = id
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status), t.AssigneeID,
		formatNullTime(t.DueDate), formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// AddProjectMember appends m to the project's members. A user already in
// the member list is left as is and added reports false.
func (s *Store) AddProjectMember(ctx context.Context, projectID string, m Member) (Project, bool, error) {
	var p Project
	var added bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var found bool
		var err error
		p, found, err = getProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		for _, existing := range p.Members {
			if existing.UserID == m.UserID {
				return nil
			}
		}
		p.Members = append(p.Members, m)
		p.UpdatedAt = s.now().UTC()
		members, err := encodeList(p.Members)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `UPDATE projects SET members = ?, updated_at = ? WHERE id = ?`,
			members, formatTime(p.UpdatedAt), projectID); err != nil {
			return fmt.Errorf("update members: %w", err)
		}
		added = true
		return nil
	})
	if err != nil {
		return Project{}, false, err
	}
	return p, added, nil
}

// CreateTask appends t to its project and recomputes the project progress.
func (s *Store) CreateTask(ctx context.Context, t Task) (Task, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, t.ProjectID).Scan(&exists); err != nil {
			return fmt.Errorf("check project: %w", err)
		}
		if !exists {
			return fmt.Errorf("project %s: %w", t.ProjectID, ErrNotFound)
		}
		if err := insertTask(ctx, tx, &t); err != nil {
			return err
		}
		return s.recomputeProgress(ctx, tx, t.ProjectID)
	})
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// UpdateTaskStatus changes the status of a task of projectID and recomputes
// the project progress.
func (s *Store) UpdateTaskStatus(ctx context.Context, projectID, taskID string, status TaskStatus) (Task, error) {
	var t Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = ? WHERE id = ? AND project_id = ?`, string(status), taskID, projectID)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("task %s in project %s: %w", taskID, projectID, ErrNotFound)
		}
		t, err = scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
		if err != nil {
			return fmt.Errorf("reload task: %w", err)
		}
		return s.recomputeProgress(ctx, tx, projectID)
	})
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// recomputeProgress sets progress to the rounded share of completed tasks.
func (s *Store) recomputeProgress(ctx context.Context, tx *sql.Tx, projectID string) error {
	var total, completed int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(status = 'completed'), 0) FROM tasks WHERE project_id = ?`, projectID,
	).Scan(&total, &completed)
	if err != nil {
		return fmt.Errorf("count tasks: %w", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE projects SET progress = ?, updated_at = ? WHERE id = ?`,
		Progress(completed, total), formatTime(s.now()), projectID)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Progress returns completed/total as a whole percentage. A project without
// tasks has no progress.
func Progress(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}
