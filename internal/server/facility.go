package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/types"
)

var _ facility.Facility = (*Server)(nil)

func replyError(action string, resp IncomingMsg) error {
	msg := resp.Error
	if msg == "" {
		msg = "request failed"
	}
	if resp.Code == CodeNotFound {
		return fmt.Errorf("%s: %s: %w", action, msg, facility.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", action, errors.New(msg))
}

func (s *Server) ListTabs(ctx context.Context, scope facility.Scope) ([]types.RawTab, error) {
	resp, err := s.Call(ctx, OutgoingMsg{Action: ActionQueryTabs, Scope: scope.String()})
	if err != nil {
		return nil, err
	}
	return ParseTabs(resp.Tabs)
}

func (s *Server) CurrentWindow(ctx context.Context) (int, error) {
	resp, err := s.Call(ctx, OutgoingMsg{Action: ActionCurrentWindow})
	if err != nil {
		return 0, err
	}
	return resp.WindowID, nil
}

func (s *Server) ActiveTab(ctx context.Context, windowID int) (types.RawTab, error) {
	resp, err := s.Call(ctx, OutgoingMsg{Action: ActionActiveTab, WindowID: windowID})
	if err != nil {
		return types.RawTab{}, err
	}
	return ParseTab(resp.Tab)
}

func (s *Server) GetTab(ctx context.Context, id types.TabID) (types.RawTab, error) {
	resp, err := s.Call(ctx, OutgoingMsg{Action: ActionGetTab, TabID: int(id)})
	if err != nil {
		return types.RawTab{}, err
	}
	return ParseTab(resp.Tab)
}

func (s *Server) CreateGroup(ctx context.Context, ids []types.TabID) (types.GroupID, error) {
	if len(ids) == 0 {
		return types.NoGroup, errors.New("server: create group: no tabs")
	}
	resp, err := s.Call(ctx, OutgoingMsg{Action: ActionGroupTabs, TabIDs: tabIDs(ids)})
	if err != nil {
		return types.NoGroup, err
	}
	return types.GroupID(resp.GroupID), nil
}

func (s *Server) AddToGroup(ctx context.Context, gid types.GroupID, ids []types.TabID) error {
	_, err := s.Call(ctx, OutgoingMsg{Action: ActionGroupTabs, TabIDs: tabIDs(ids), GroupID: groupRef(gid)})
	return err
}

func (s *Server) Ungroup(ctx context.Context, id types.TabID) error {
	_, err := s.Call(ctx, OutgoingMsg{Action: ActionUngroupTab, TabIDs: []int{int(id)}})
	return err
}

func (s *Server) GetGroup(ctx context.Context, gid types.GroupID) (types.GroupInfo, error) {
	resp, err := s.Call(ctx, OutgoingMsg{Action: ActionGetGroup, GroupID: groupRef(gid)})
	if err != nil {
		return types.GroupInfo{}, err
	}
	return ParseGroup(resp.Group)
}

func (s *Server) UpdateGroup(ctx context.Context, gid types.GroupID, upd types.GroupUpdate) error {
	_, err := s.Call(ctx, OutgoingMsg{
		Action:  ActionUpdateGroup,
		GroupID: groupRef(gid),
		Update: &GroupUpdatePayload{
			Title:     upd.Title,
			Color:     string(upd.Color),
			Collapsed: upd.Collapsed,
		},
	})
	return err
}
