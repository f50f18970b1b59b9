package models

import "time"

type CreationType string

const (
	CreationTypeArticle           CreationType = "article"
	CreationTypeBlogTitle         CreationType = "blog-title"
	CreationTypeImage             CreationType = "image"
	CreationTypeBackgroundRemoved CreationType = "background-removed-image"
	CreationTypeObjectRemoved     CreationType = "object-removed-image"
	CreationTypeResumeReview      CreationType = "resume-review"
)

func (t CreationType) Valid() bool {
	switch t {
	case CreationTypeArticle,
		CreationTypeBlogTitle,
		CreationTypeImage,
		CreationTypeBackgroundRemoved,
		CreationTypeObjectRemoved,
		CreationTypeResumeReview:
		return true
	}
	return false
}

// IsImage reports whether Content holds an object-store URL rather than text.
func (t CreationType) IsImage() bool {
	switch t {
	case CreationTypeImage, CreationTypeBackgroundRemoved, CreationTypeObjectRemoved:
		return true
	}
	return false
}

type Creation struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"user_id"`
	Type      CreationType `json:"type"`
	Prompt    string       `json:"prompt"`
	Content   string       `json:"content"`
	Published bool         `json:"published"`
	Likes     []string     `json:"likes"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (c Creation) LikedBy(userID string) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
