package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// at parses the fixed timestamps of the seed data.
func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(fmt.Sprintf("seed timestamp %q: %v", s, err))
	}
	return t
}

func atPtr(s string) *time.Time {
	t := at(s)
	return &t
}

var seedUsers = []User{
	{ID: "user1", Name: "Li Ming", Email: "test@example.com", Role: "DESIGNER", Avatar: "/avatars/user1.jpg",
		Bio: "Creative designer and product manager who loves innovation and solving problems.", CreatedAt: at("2023-01-15T08:30:00Z")},
	{ID: "user2", Name: "Zhang Wei", Email: "zhang@example.com", Role: "DEVELOPER", Avatar: "/avatars/user2.jpg",
		Bio: "Senior software engineer focused on web development and AI applications.", CreatedAt: at("2023-02-20T10:15:00Z")},
	{ID: "user3", Name: "Wang Fang", Email: "wang@example.com", Role: "MARKETER", Avatar: "/avatars/user3.jpg",
		Bio: "Marketing expert skilled in brand strategy and user growth.", CreatedAt: at("2023-03-10T14:45:00Z")},
	{ID: "user4", Name: "Zhao Jing", Email: "zhao@example.com", Role: "CONTENT_CREATOR", Avatar: "/avatars/user4.jpg",
		Bio: "Content creator telling compelling stories through writing and video.", CreatedAt: at("2023-04-05T09:20:00Z")},
	{ID: "user5", Name: "Chen Qiang", Email: "chen@example.com", Role: "PROJECT_MANAGER", Avatar: "/avatars/user5.jpg",
		Bio: "Project management expert focused on teamwork and resource planning.", CreatedAt: at("2023-05-12T11:30:00Z")},
}

var seedIdeas = []Idea{
	{
		ID: "idea1", Title: "Smart home control hub", UserID: "user1", Category: "Technology",
		Description: "A hub that integrates every smart home device, with voice and automation driven by an AI assistant.",
		Tags:        []string{"smart-home", "AI", "automation"}, Visibility: VisibilityPublic,
		Collaborators: []string{"user2", "user3"}, Likes: 42, Views: 156, Comments: 15,
		CreatedAt: at("2023-06-15T08:30:00Z"), UpdatedAt: at("2023-06-15T08:30:00Z"),
	},
	{
		ID: "idea2", Title: "Sustainable fashion marketplace", UserID: "user3", Category: "Fashion",
		Description: "A marketplace connecting ethical fashion brands with conscious shoppers, with a transparent supply chain.",
		Tags:        []string{"sustainability", "e-commerce", "ethical-consumption"}, Visibility: VisibilityPublic,
		Collaborators: []string{"user4"}, Likes: 35, Views: 128, Comments: 9,
		CreatedAt: at("2023-06-18T10:15:00Z"), UpdatedAt: at("2023-06-18T10:15:00Z"),
	},
	{
		ID: "idea3", Title: "Community farming app", UserID: "user2", Category: "Agriculture",
		Description: "An app that connects local farmers with consumers to sell produce directly and cut food miles.",
		Tags:        []string{"local-farming", "sustainability", "community"}, Visibility: VisibilityPublic,
		Collaborators: []string{"user5"}, Likes: 28, Views: 112, Comments: 14,
		CreatedAt: at("2023-06-20T14:45:00Z"), UpdatedAt: at("2023-06-21T09:30:00Z"),
	},
	{
		ID: "idea4", Title: "Skill exchange platform", UserID: "user5", Category: "Education",
		Description: "A platform where people trade learning time, such as language or music lessons, to learn from each other.",
		Tags:        []string{"skill-exchange", "community-learning", "knowledge-sharing"}, Visibility: VisibilityPublic,
		Collaborators: []string{}, Likes: 22, Views: 95, Comments: 7,
		CreatedAt: at("2023-06-22T09:20:00Z"), UpdatedAt: at("2023-06-22T09:20:00Z"),
	},
	{
		ID: "idea5", Title: "Mental health tracker", UserID: "user4", Category: "Health",
		Description: "An app that tracks mood, suggests personal wellbeing advice and connects users with counselors when needed.",
		Tags:        []string{"mental-health", "self-care", "health-tech"}, Visibility: VisibilityPrivate,
		Collaborators: []string{"user1"}, Likes: 19, Views: 82, Comments: 5,
		CreatedAt: at("2023-06-25T11:30:00Z"), UpdatedAt: at("2023-06-26T15:45:00Z"),
	},
	{
		ID: "idea6", Title: "Urban greening crowdfunding", UserID: "user1", Category: "Environment",
		Description: "A platform for residents to crowdfund local greening projects and take part in planning them.",
		Tags:        []string{"urban-greening", "crowdfunding", "civic"}, Visibility: VisibilityPublic,
		Collaborators: []string{"user2", "user5"}, Likes: 31, Views: 118, Comments: 12,
		CreatedAt: at("2023-06-28T16:20:00Z"), UpdatedAt: at("2023-06-29T10:10:00Z"),
	},
}

// seedMembers builds the member list of a seeded project. The creator comes
// first with the owner role.
func seedMembers(creator string, others ...string) []Member {
	out := []Member{{UserID: creator, Role: "owner"}}
	for _, id := range others {
		out = append(out, Member{UserID: id, Role: "member"})
	}
	return out
}

func seedTask(id, title string, status TaskStatus, assignee string) Task {
	return Task{ID: id, Title: title, Status: status, AssigneeID: assignee}
}

var seedProjects = []Project{
	{
		ID: "project1", Title: "Smart home control system", CreatorID: "user1", Category: "Software",
		Description: "Building the control system behind the smart home hub idea, with voice and automation.",
		Status:      ProjectInProgress, Progress: 65, IdeaID: "idea1",
		StartDate: atPtr("2023-07-01T00:00:00Z"), EndDate: atPtr("2023-10-30T00:00:00Z"),
		Members: seedMembers("user1", "user2", "user3"), Tags: []string{"smart-home", "AI", "software"},
		Tasks: []Task{
			seedTask("task1", "System architecture", TaskCompleted, "user2"),
			seedTask("task2", "Frontend development", TaskInProgress, "user1"),
			seedTask("task3", "Voice recognition integration", TaskPlanned, "user3"),
		},
		CreatedAt: at("2023-07-01T09:00:00Z"), UpdatedAt: at("2023-08-15T14:30:00Z"),
	},
	{
		ID: "project2", Title: "Sustainable fashion incubator", CreatorID: "user3", Category: "Fashion startup",
		Description: "Incubating three sustainable fashion brands and an online sales channel for them.",
		Status:      ProjectPlanning, Progress: 25, IdeaID: "idea2",
		StartDate: atPtr("2023-08-01T00:00:00Z"), EndDate: atPtr("2024-02-28T00:00:00Z"),
		Members: seedMembers("user3", "user4", "user5"), Tags: []string{"sustainable-fashion", "branding", "e-commerce"},
		Tasks: []Task{
			seedTask("task4", "Market research", TaskCompleted, "user3"),
			seedTask("task5", "Brand strategy", TaskInProgress, "user4"),
			seedTask("task6", "Supplier selection", TaskPlanned, "user5"),
		},
		CreatedAt: at("2023-08-01T10:15:00Z"), UpdatedAt: at("2023-08-20T16:45:00Z"),
	},
	{
		ID: "project3", Title: "Community farming network", CreatorID: "user2", Category: "Agritech",
		Description: "Building a network that connects local farmers with consumers of organic produce.",
		Status:      ProjectInProgress, Progress: 45, IdeaID: "idea3",
		StartDate: atPtr("2023-07-15T00:00:00Z"), EndDate: atPtr("2023-12-15T00:00:00Z"),
		Members: seedMembers("user2", "user5", "user1"), Tags: []string{"community-farming", "local-food", "sustainability"},
		Tasks: []Task{
			seedTask("task7", "Farmer interviews", TaskCompleted, "user5"),
			seedTask("task8", "Platform prototype", TaskCompleted, "user1"),
			seedTask("task9", "First farmer network", TaskInProgress, "user2"),
		},
		CreatedAt: at("2023-07-15T08:30:00Z"), UpdatedAt: at("2023-08-10T11:20:00Z"),
	},
	{
		ID: "project4", Title: "Mental health app", CreatorID: "user4", Category: "Health tech",
		Description: "A mood tracking app that helps people understand and improve their mental health.",
		Status:      ProjectCompleted, Progress: 100, IdeaID: "idea5",
		StartDate: atPtr("2023-06-01T00:00:00Z"), EndDate: atPtr("2023-08-31T00:00:00Z"),
		Members: seedMembers("user4", "user1", "user2"), Tags: []string{"mental-health", "app-development", "health-tech"},
		Tasks: []Task{
			seedTask("task10", "User research", TaskCompleted, "user4"),
			seedTask("task11", "App design and development", TaskCompleted, "user2"),
			seedTask("task12", "Expert consultation", TaskCompleted, "user1"),
		},
		CreatedAt: at("2023-06-01T14:00:00Z"), UpdatedAt: at("2023-08-31T09:45:00Z"),
	},
	{
		ID: "project5", Title: "Skill exchange pilot", CreatorID: "user5", Category: "Edtech",
		Description: "Testing a prototype that lets users trade learning time and collecting their feedback.",
		Status:      ProjectInProgress, Progress: 80, IdeaID: "idea4",
		StartDate: atPtr("2023-08-15T00:00:00Z"), EndDate: atPtr("2023-09-30T00:00:00Z"),
		Members: seedMembers("user5", "user3"), Tags: []string{"skill-exchange", "pilot", "edtech"},
		Tasks: []Task{
			seedTask("task13", "Platform design", TaskCompleted, "user5"),
			seedTask("task14", "Prototype development", TaskCompleted, "user3"),
			seedTask("task15", "User testing", TaskInProgress, "user5"),
		},
		CreatedAt: at("2023-08-15T11:30:00Z"), UpdatedAt: at("2023-09-10T15:20:00Z"),
	},
}

var seedConversations = []Conversation{
	{ID: "conv1", ParticipantIDs: []string{"user1", "user2"}, CreatedAt: at("2023-08-20T09:15:00Z")},
	{ID: "conv2", ParticipantIDs: []string{"user3", "user4"}, CreatedAt: at("2023-08-21T10:15:00Z")},
	{ID: "conv3", ParticipantIDs: []string{"user2", "user5"}, CreatedAt: at("2023-08-22T14:30:00Z")},
}

var seedMessages = []Message{
	{ID: "msg1", ConversationID: "conv1", SenderID: "user2", Read: true, CreatedAt: at("2023-08-20T09:15:00Z"),
		Content: "Hi, we need to talk about the interface design for the smart home project."},
	{ID: "msg2", ConversationID: "conv1", SenderID: "user1", Read: true, CreatedAt: at("2023-08-20T09:20:00Z"),
		Content: "Sure, I already have a few ideas. When are you free?"},
	{ID: "msg3", ConversationID: "conv1", SenderID: "user2", Read: true, CreatedAt: at("2023-08-20T09:25:00Z"),
		Content: "How about 3pm today? We can meet online."},
	{ID: "msg4", ConversationID: "conv1", SenderID: "user1", Read: true, CreatedAt: at("2023-08-20T09:30:00Z"),
		Content: "3pm works, I'll send you the meeting link."},
	{ID: "msg5", ConversationID: "conv2", SenderID: "user3", Read: false, CreatedAt: at("2023-08-21T10:15:00Z"),
		Content: "Hey, any advice on market positioning for the sustainable fashion brands?"},
	{ID: "msg6", ConversationID: "conv2", SenderID: "user4", Read: false, CreatedAt: at("2023-08-21T10:20:00Z"),
		Content: "I think we should target eco-conscious young professionals aged 25 to 35."},
	{ID: "msg7", ConversationID: "conv3", SenderID: "user5", Read: false, CreatedAt: at("2023-08-22T14:30:00Z"),
		Content: "The research report for the community farming project is done, want to take a look?"},
	{ID: "msg8", ConversationID: "conv3", SenderID: "user2", Read: true, CreatedAt: at("2023-08-22T14:35:00Z"),
		Content: "Of course, please share it. We need to adjust our strategy based on it."},
}

var seedNotifications = []Notification{
	{ID: "notif1", UserID: "user1", Type: NotifyNewCollaborator, RelatedID: "project1", CreatedAt: at("2023-08-15T09:00:00Z"),
		Content: `Zhang Wei joined your project "Smart home control system"`},
	{ID: "notif2", UserID: "user1", Type: NotifyComment, RelatedID: "idea1", Read: true, CreatedAt: at("2023-08-16T10:30:00Z"),
		Content: `Zhang Wei commented on your idea "Smart home control hub"`},
	{ID: "notif3", UserID: "user1", Type: NotifyTaskAssigned, RelatedID: "task2", CreatedAt: at("2023-08-17T11:15:00Z"),
		Content: `You were assigned the task "Frontend development"`},
	{ID: "notif4", UserID: "user1", Type: NotifyLike, RelatedID: "idea1", CreatedAt: at("2023-08-18T14:20:00Z"),
		Content: `Wang Fang liked your idea "Smart home control hub"`},
}

// Seed fills an empty store with the demo data set. A store that already
// has users is left untouched.
func (s *Store) Seed(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if n > 0 {
			return nil
		}

		for _, u := range seedUsers {
			if err := insertUser(ctx, tx, &u); err != nil {
				return err
			}
		}
		for _, i := range seedIdeas {
			if err := insertIdea(ctx, tx, &i); err != nil {
				return err
			}
		}
		for _, p := range seedProjects {
			// Copy the tasks so the package level slice is never written to.
			p.Tasks = append([]Task(nil), p.Tasks...)
			for i := range p.Tasks {
				p.Tasks[i].CreatedAt = p.CreatedAt
			}
			if err := insertProject(ctx, tx, &p); err != nil {
				return err
			}
		}
		for _, c := range seedConversations {
			if err := insertConversation(ctx, tx, &c); err != nil {
				return err
			}
		}
		for _, m := range seedMessages {
			if err := insertMessage(ctx, tx, &m); err != nil {
				return err
			}
		}
		for _, n := range seedNotifications {
			if err := insertNotification(ctx, tx, &n); err != nil {
				return err
			}
		}

		sequences := map[string]int{
			"user":    len(seedUsers),
			"idea":    len(seedIdeas),
			"project": len(seedProjects),
			"task":    15,
			"conv":    len(seedConversations),
			"msg":     len(seedMessages),
			"notif":   len(seedNotifications),
		}
		for kind, n := range sequences {
			if err := advanceSequence(ctx, tx, kind, n); err != nil {
				return err
			}
		}
		return nil
	})
}
