package model

// Relationship holds the normalized texts of a parent keyword and the shorter
// child keyword it contains.
type Relationship struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

type MergeSuggestion struct {
	ParentText        string `json:"parent_text"`
	ParentID          string `json:"parent_id"`
	ChildText         string `json:"child_text"`
	ChildID           string `json:"child_id"`
	SharedAnswerCount int    `json:"shared_answer_count"`
}

// Removal records a child keyword unlinked from an answer because a parent
// keyword on the same answer already contains it.
type Removal struct {
	AnswerID string  `json:"answer_id"`
	Parent   Keyword `json:"parent"`
	Child    Keyword `json:"child"`
}

type MergeResult struct {
	ParentID      string `json:"parent_id"`
	ChildID       string `json:"child_id"`
	Repointed     int64  `json:"repointed"`      // links moved from child to parent
	Dropped       int64  `json:"dropped"`        // child links removed because the parent already had them
	ChildDeleted  bool   `json:"child_deleted"`
	AlreadyMerged bool   `json:"already_merged"` // child was gone before the call
}

// Family is a connected group of keywords linked by merge suggestions.
type Family struct {
	Root        Keyword           `json:"root"`
	Members     []Keyword         `json:"members"`
	Suggestions []MergeSuggestion `json:"suggestions"`
}
