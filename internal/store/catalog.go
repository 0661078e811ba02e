package store

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/derive"
	"zenfocus/backend/internal/gateway"
	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/models"
)

const (
	EmptySubjectsMessage = "No subjects yet. Add one!"
	EmptyTopicsMessage   = "No topics for this subject. Add one!"
)

// Catalog holds the identity's subjects and topics. Deletes cascade over
// the task mirror it shares with the task store.
type Catalog struct {
	owner    uuid.UUID
	subjects gateway.Collection[models.Subject]
	topics   gateway.Collection[models.Topic]
	tasks    gateway.Collection[models.Task]

	subjectMirror *Mirror[models.Subject]
	topicMirror   *Mirror[models.Topic]
	taskMirror    *Mirror[models.Task]

	subjectSync *binding[models.Subject]
	topicSync   *binding[models.Topic]
}

func NewCatalog(owner uuid.UUID, cols Collections, taskMirror *Mirror[models.Task], onChange func()) *Catalog {
	c := &Catalog{
		owner:         owner,
		subjects:      cols.Subjects,
		topics:        cols.Topics,
		tasks:         cols.Tasks,
		subjectMirror: NewMirror[models.Subject](),
		topicMirror:   NewMirror[models.Topic](),
		taskMirror:    taskMirror,
	}
	c.subjectSync = newBinding(cols.Subjects, c.subjectMirror, onChange)
	c.topicSync = newBinding(cols.Topics, c.topicMirror, onChange)
	return c
}

func (c *Catalog) Start(ctx context.Context) error {
	if err := c.subjectSync.start(ctx, c.owner); err != nil {
		return err
	}
	if err := c.topicSync.start(ctx, c.owner); err != nil {
		c.subjectSync.stop()
		return err
	}
	return nil
}

func (c *Catalog) Stop() {
	c.subjectSync.stop()
	c.topicSync.stop()
}

func (c *Catalog) Subjects() []models.Subject { return c.subjectMirror.Snapshot() }

func (c *Catalog) Topics() []models.Topic { return c.topicMirror.Snapshot() }

func (c *Catalog) Subject(id uuid.UUID) (models.Subject, bool) { return c.subjectMirror.Get(id) }

func (c *Catalog) Topic(id uuid.UUID) (models.Topic, bool) { return c.topicMirror.Get(id) }

// TopicsFor lists the topics under subjectID, every topic when no subject
// is given.
func (c *Catalog) TopicsFor(subjectID *uuid.UUID) []models.Topic {
	return derive.TopicsFor(c.topicMirror.Snapshot(), subjectID)
}

// ReplaceSubjects applies a full snapshot of the subject collection.
func (c *Catalog) ReplaceSubjects(subjects []models.Subject) {
	c.subjectMirror.ReplaceAll(subjects)
}

func (c *Catalog) ReplaceTopics(topics []models.Topic) {
	c.topicMirror.ReplaceAll(topics)
}

func (c *Catalog) AddSubject(ctx context.Context, name string) (models.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Subject{}, invalid("name", "Subject name cannot be empty.")
	}

	subject := models.Subject{OwnerID: c.owner, Name: name}
	if err := c.subjects.Create(ctx, &subject); err != nil {
		err = syncErr(OpAddSubject, err)
		logger.Error("failed to add subject", "owner", c.owner, "error", err)
		return models.Subject{}, err
	}
	return subject, nil
}

// AddTopic requires a non-empty name and a subject currently in the catalog.
func (c *Catalog) AddTopic(ctx context.Context, name string, subjectID uuid.UUID) (models.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Topic{}, invalid("name", "Topic name and subject must be selected.")
	}
	if subjectID.IsNil() {
		return models.Topic{}, invalid("subject_id", "Topic name and subject must be selected.")
	}
	subject, ok := c.subjectMirror.Get(subjectID)
	if !ok {
		return models.Topic{}, invalid("subject_id", "Selected subject not found.")
	}

	topic := models.Topic{
		OwnerID:     c.owner,
		Name:        name,
		SubjectID:   subject.ID,
		SubjectName: subject.Name,
	}
	if err := c.topics.Create(ctx, &topic); err != nil {
		err = syncErr(OpAddTopic, err)
		logger.Error("failed to add topic", "owner", c.owner, "error", err)
		return models.Topic{}, err
	}
	return topic, nil
}

// DeleteSubject removes the subject's topics, then its tasks, then the
// subject. It stops at the first failed delete; calling it again resumes
// from whatever is left.
func (c *Catalog) DeleteSubject(ctx context.Context, id uuid.UUID) error {
	topics := c.topicMirror.Where(func(t models.Topic) bool { return t.SubjectID == id })
	for _, t := range topics {
		if err := c.topics.Delete(ctx, c.owner, t.ID); err != nil {
			return c.cascadeFailed(OpDeleteSubject, id, err)
		}
	}

	tasks := c.taskMirror.Where(func(t models.Task) bool { return t.HasSubject(id) })
	for _, t := range tasks {
		if err := c.tasks.Delete(ctx, c.owner, t.ID); err != nil {
			return c.cascadeFailed(OpDeleteSubject, id, err)
		}
	}

	if err := c.subjects.Delete(ctx, c.owner, id); err != nil {
		return c.cascadeFailed(OpDeleteSubject, id, err)
	}

	logger.Info("subject deleted", "owner", c.owner, "subject_id", id, "topics", len(topics), "tasks", len(tasks))
	return nil
}

// DeleteTopic detaches the topic from its tasks before deleting it. Tasks
// that no longer exist are skipped.
func (c *Catalog) DeleteTopic(ctx context.Context, id uuid.UUID) error {
	tasks := c.taskMirror.Where(func(t models.Task) bool { return t.HasTopic(id) })
	detach := map[string]interface{}{"topic_id": nil, "topic_name": nil}
	for _, t := range tasks {
		err := c.tasks.Update(ctx, c.owner, t.ID, detach)
		if errors.Is(err, gateway.ErrNotFound) {
			continue
		}
		if err != nil {
			return c.cascadeFailed(OpDeleteTopic, id, err)
		}
	}

	if err := c.topics.Delete(ctx, c.owner, id); err != nil {
		return c.cascadeFailed(OpDeleteTopic, id, err)
	}
	return nil
}

func (c *Catalog) cascadeFailed(op string, id uuid.UUID, err error) error {
	err = syncErr(op, err)
	logger.Error("cascade delete failed", "owner", c.owner, "id", id, "error", err)
	return err
}
