package assemble

import (
	"context"
	"fmt"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
)

// AnnouncementView is an announcement with its author resolved.
type AnnouncementView struct {
	model.Announcement
	Author model.Profile
}

// Announcements assembles the announcement feed, pinned posts first.
func (a *Assembler) Announcements(ctx context.Context, limit int) ([]AnnouncementView, error) {
	p := backend.Params{}.Order("created_at", true)
	if limit > 0 {
		p = p.Limit(limit)
	}
	var posts []model.Announcement
	if err := a.db.Select(ctx, backend.TableAnnouncements, p, &posts); err != nil {
		return nil, fmt.Errorf("fetching announcements: %w", err)
	}

	authorIDs := make([]string, 0, len(posts))
	for _, post := range posts {
		authorIDs = append(authorIDs, post.AuthorID)
	}
	profiles, err := a.fetchProfiles(ctx, dedupe(authorIDs))
	if err != nil {
		return nil, fmt.Errorf("fetching announcement authors: %w", err)
	}

	views := make([]AnnouncementView, 0, len(posts))
	var pinned []AnnouncementView
	for _, post := range posts {
		v := AnnouncementView{
			Announcement: post,
			Author:       profileOrPlaceholder(profiles, post.AuthorID),
		}
		if post.Pinned {
			pinned = append(pinned, v)
		} else {
			views = append(views, v)
		}
	}
	return append(pinned, views...), nil
}

// Jobs fetches the job board, newest first.
func (a *Assembler) Jobs(ctx context.Context, limit int) ([]model.Job, error) {
	p := backend.Params{}.Order("created_at", true)
	if limit > 0 {
		p = p.Limit(limit)
	}
	var jobs []model.Job
	if err := a.db.Select(ctx, backend.TableJobs, p, &jobs); err != nil {
		return nil, fmt.Errorf("fetching jobs: %w", err)
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	return jobs, nil
}

// Events fetches upcoming events, soonest first.
func (a *Assembler) Events(ctx context.Context, limit int) ([]model.Event, error) {
	p := backend.Params{}.Order("starts_at", false)
	if limit > 0 {
		p = p.Limit(limit)
	}
	var events []model.Event
	if err := a.db.Select(ctx, backend.TableEvents, p, &events); err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// Notifications fetches userID's notifications, unread first then newest.
func (a *Assembler) Notifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	p := backend.Where("user_id", userID).Order("created_at", true)
	if limit > 0 {
		p = p.Limit(limit)
	}
	var notes []model.Notification
	if err := a.db.Select(ctx, backend.TableNotifications, p, &notes); err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}

	var unread, read []model.Notification
	for _, n := range notes {
		if n.Read {
			read = append(read, n)
		} else {
			unread = append(unread, n)
		}
	}
	out := append(unread, read...)
	if out == nil {
		out = []model.Notification{}
	}
	return out, nil
}
