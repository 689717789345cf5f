package app

import (
	"context"
	"fmt"
	"strings"

	"chat_platform/internal/directory/domain"
	"chat_platform/internal/directory/repository"
)

// DefaultSearchLimit rows returned per index
const DefaultSearchLimit = 50

// SearchUseCase user and tag search
type SearchUseCase interface {
	SearchUsersByName(ctx context.Context, term string) ([]domain.User, error)
	SearchUsersByTerm(ctx context.Context, term string) ([]domain.User, error)
	SearchUsersByTag(ctx context.Context, tag string) ([]domain.User, error)
	SearchTagsByTerm(ctx context.Context, term string) ([]domain.Tag, error)
}

type searchUseCase struct {
	userRepo repository.UserRepository
	tagRepo  repository.TagRepository
	urls     URLResolver
	limit    int
}

// NewSearchUseCase limit <= 0 uses DefaultSearchLimit
func NewSearchUseCase(userRepo repository.UserRepository, tagRepo repository.TagRepository, urls URLResolver, limit int) SearchUseCase {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &searchUseCase{userRepo: userRepo, tagRepo: tagRepo, urls: urls, limit: limit}
}

func (s *searchUseCase) SearchUsersByName(ctx context.Context, term string) ([]domain.User, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.User{}, nil
	}
	users, err := s.userRepo.SearchByName(ctx, term, s.limit)
	if err != nil {
		return nil, fmt.Errorf("search by name: %w", err)
	}
	return s.resolve(ctx, users), nil
}

// SearchUsersByTerm name hits first, then username hits not already listed
func (s *searchUseCase) SearchUsersByTerm(ctx context.Context, term string) ([]domain.User, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.User{}, nil
	}
	byName, err := s.userRepo.SearchByName(ctx, term, s.limit)
	if err != nil {
		return nil, fmt.Errorf("search by name: %w", err)
	}
	byUsername, err := s.userRepo.SearchByUsername(ctx, term, s.limit)
	if err != nil {
		return nil, fmt.Errorf("search by username: %w", err)
	}
	return s.resolve(ctx, MergeUsers(byName, byUsername)), nil
}

func (s *searchUseCase) SearchUsersByTag(ctx context.Context, tag string) ([]domain.User, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return []domain.User{}, nil
	}
	t, err := s.tagRepo.FindByName(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("find tag %s: %w", tag, err)
	}
	if t == nil || len(t.UserIDs) == 0 {
		return []domain.User{}, nil
	}
	ids := t.UserIDs
	if len(ids) > s.limit {
		ids = ids[:s.limit]
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find tag users: %w", err)
	}
	return s.resolve(ctx, users), nil
}

func (s *searchUseCase) SearchTagsByTerm(ctx context.Context, term string) ([]domain.Tag, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []domain.Tag{}, nil
	}
	tags, err := s.tagRepo.SearchByPrefix(ctx, term, s.limit)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	return tags, nil
}

func (s *searchUseCase) resolve(ctx context.Context, users []domain.User) []domain.User {
	for i := range users {
		users[i].Image = ResolveAvatar(ctx, s.urls, users[i])
	}
	return users
}

// MergeUsers concatenate lists keeping the first occurrence of each id
func MergeUsers(lists ...[]domain.User) []domain.User {
	out := []domain.User{}
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, u := range list {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
