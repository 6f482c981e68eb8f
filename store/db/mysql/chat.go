package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arcanaworks/grimoire/store"
)

func (d *DB) CreateChatSession(ctx context.Context, create *store.ChatSession) (*store.ChatSession, error) {
	now := time.Now().Unix()
	stmt := "INSERT INTO `chat_session` (`uid`, `creator_id`, `title`, `created_ts`, `updated_ts`) VALUES (?, ?, ?, ?, ?)"
	result, err := d.db.ExecContext(ctx, stmt, create.UID, create.CreatorID, create.Title, now, now)
	if err != nil {
		return nil, err
	}
	rawID, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	create.ID = int32(rawID)
	create.CreatedTs = now
	create.UpdatedTs = now
	return create, nil
}

func (d *DB) ListChatSessions(ctx context.Context, find *store.FindChatSession) ([]*store.ChatSession, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "`creator_id` = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "`uid` = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		"SELECT `id`, `uid`, `creator_id`, `title`, `created_ts`, `updated_ts` FROM `chat_session` WHERE %s ORDER BY `updated_ts` DESC, `id` DESC",
		strings.Join(where, " AND "),
	)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.ChatSession
	for rows.Next() {
		s := &store.ChatSession{}
		if err := rows.Scan(&s.ID, &s.UID, &s.CreatorID, &s.Title, &s.CreatedTs, &s.UpdatedTs); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (d *DB) GetChatSession(ctx context.Context, find *store.FindChatSession) (*store.ChatSession, error) {
	list, err := d.ListChatSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) UpdateChatSession(ctx context.Context, update *store.UpdateChatSession) (*store.ChatSession, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "`title` = ?"), append(args, *v)
	}
	if len(set) == 0 {
		return d.GetChatSession(ctx, &store.FindChatSession{UID: &update.UID, CreatorID: &update.CreatorID})
	}
	set, args = append(set, "`updated_ts` = ?"), append(args, time.Now().Unix())
	args = append(args, update.UID, update.CreatorID)
	stmt := fmt.Sprintf("UPDATE `chat_session` SET %s WHERE `uid` = ? AND `creator_id` = ?", strings.Join(set, ", "))

	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	return d.GetChatSession(ctx, &store.FindChatSession{UID: &update.UID, CreatorID: &update.CreatorID})
}

func (d *DB) DeleteChatSession(ctx context.Context, uid string, creatorID string) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		"DELETE FROM `chat_session` WHERE `uid` = ? AND `creator_id` = ?", uid, creatorID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) CreateChatMessage(ctx context.Context, create *store.CreateChatMessage) (*store.ChatMessage, error) {
	now := time.Now().Unix()
	stmt := "INSERT INTO `chat_message` (`session_id`, `role`, `content`, `created_ts`) VALUES (?, ?, ?, ?)"
	result, err := d.db.ExecContext(ctx, stmt, create.SessionID, create.Role, create.Content, now)
	if err != nil {
		return nil, err
	}
	rawID, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	_, _ = d.db.ExecContext(ctx, "UPDATE `chat_session` SET `updated_ts` = ? WHERE `id` = ?", now, create.SessionID)
	return &store.ChatMessage{
		ID:        int32(rawID),
		SessionID: create.SessionID,
		Role:      create.Role,
		Content:   create.Content,
		CreatedTs: now,
	}, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	query := "SELECT `id`, `session_id`, `role`, `content`, `created_ts` FROM `chat_message` WHERE `session_id` = ? ORDER BY `id` ASC"
	rows, err := d.db.QueryContext(ctx, query, find.SessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.ChatMessage
	for rows.Next() {
		m := &store.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedTs); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (d *DB) DeleteChatMessages(ctx context.Context, sessionID int32) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM `chat_message` WHERE `session_id` = ?", sessionID)
	return err
}
