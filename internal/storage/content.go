package storage

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a requested content row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultSettingsID is the id of the single site settings row.
const DefaultSettingsID = "default"

// SiteSettings is the hero/banner and footer content of the landing page.
type SiteSettings struct {
	ID                 string `json:"id"`
	SiteTitle          string `json:"siteTitle"`
	SiteLogo           string `json:"siteLogo"`
	HeroTitle          string `json:"heroTitle"`
	HeroSubtitle       string `json:"heroSubtitle"`
	HeroLogo           string `json:"heroLogo"`
	DownloadButtonText string `json:"downloadButtonText"`
	DownloadButtonURL  string `json:"downloadButtonUrl"`
	FooterText         string `json:"footerText"`
	BackgroundImage    string `json:"backgroundImage"`
}

// GameFeature is one line of the landing page feature list.
type GameFeature struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Order    int    `json:"order"`
	IsActive bool   `json:"isActive"`
}

// JobClass is one entry of the job/class gallery.
type JobClass struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Order       int    `json:"order"`
	IsActive    bool   `json:"isActive"`
}

// SiteSettings returns the default settings row.
func (s *SQLiteStore) SiteSettings(ctx context.Context) (SiteSettings, error) {
	rows, err := s.Query(ctx, `SELECT id, siteTitle, siteLogo, heroTitle, heroSubtitle, heroLogo,
		downloadButtonText, downloadButtonUrl, footerText, backgroundImage
		FROM "SiteSettings" WHERE id = ?`, DefaultSettingsID)
	if err != nil {
		return SiteSettings{}, errors.Wrap(err, "failed to query site settings")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return SiteSettings{}, errors.Wrap(err, "error iterating rows")
		}
		return SiteSettings{}, ErrNotFound
	}

	var st SiteSettings
	err = rows.Scan(&st.ID, &st.SiteTitle, &st.SiteLogo, &st.HeroTitle, &st.HeroSubtitle, &st.HeroLogo,
		&st.DownloadButtonText, &st.DownloadButtonURL, &st.FooterText, &st.BackgroundImage)
	if err != nil {
		return SiteSettings{}, errors.Wrap(err, "failed to scan site settings")
	}
	return st, nil
}

// SaveSiteSettings upserts the default settings row.
func (s *SQLiteStore) SaveSiteSettings(ctx context.Context, st SiteSettings) error {
	_, err := s.Exec(ctx, `INSERT INTO "SiteSettings"
		(id, siteTitle, siteLogo, heroTitle, heroSubtitle, heroLogo,
		 downloadButtonText, downloadButtonUrl, footerText, backgroundImage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			siteTitle = excluded.siteTitle,
			siteLogo = excluded.siteLogo,
			heroTitle = excluded.heroTitle,
			heroSubtitle = excluded.heroSubtitle,
			heroLogo = excluded.heroLogo,
			downloadButtonText = excluded.downloadButtonText,
			downloadButtonUrl = excluded.downloadButtonUrl,
			footerText = excluded.footerText,
			backgroundImage = excluded.backgroundImage,
			updatedAt = CURRENT_TIMESTAMP`,
		DefaultSettingsID, st.SiteTitle, st.SiteLogo, st.HeroTitle, st.HeroSubtitle, st.HeroLogo,
		st.DownloadButtonText, st.DownloadButtonURL, st.FooterText, st.BackgroundImage)
	return errors.Wrap(err, "failed to save site settings")
}

// AddGameFeature inserts or replaces a game feature.
func (s *SQLiteStore) AddGameFeature(ctx context.Context, f GameFeature) error {
	_, err := s.Exec(ctx, `INSERT OR REPLACE INTO "GameFeature" (id, text, "order", isActive) VALUES (?, ?, ?, ?)`,
		f.ID, f.Text, f.Order, f.IsActive)
	return errors.Wrap(err, "failed to save game feature")
}

// ActiveGameFeatures lists active features in display order.
func (s *SQLiteStore) ActiveGameFeatures(ctx context.Context) ([]GameFeature, error) {
	rows, err := s.Query(ctx, `SELECT id, text, "order", isActive FROM "GameFeature"
		WHERE isActive = 1 ORDER BY "order" ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query game features")
	}
	defer rows.Close()

	var features []GameFeature
	for rows.Next() {
		var f GameFeature
		if err := rows.Scan(&f.ID, &f.Text, &f.Order, &f.IsActive); err != nil {
			return nil, errors.Wrap(err, "failed to scan game feature")
		}
		features = append(features, f)
	}
	return features, errors.Wrap(rows.Err(), "error iterating rows")
}

// AddJobClass inserts or replaces a job class.
func (s *SQLiteStore) AddJobClass(ctx context.Context, j JobClass) error {
	_, err := s.Exec(ctx, `INSERT OR REPLACE INTO "JobClass"
		(id, name, category, description, imageUrl, "order", isActive) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Name, j.Category, j.Description, j.ImageURL, j.Order, j.IsActive)
	return errors.Wrap(err, "failed to save job class")
}

// ActiveJobClasses lists active job classes of a category in display order.
// An empty category lists every category.
func (s *SQLiteStore) ActiveJobClasses(ctx context.Context, category string) ([]JobClass, error) {
	query := `SELECT id, name, category, description, imageUrl, "order", isActive FROM "JobClass"
		WHERE isActive = 1 AND (? = '' OR category = ?) ORDER BY category ASC, "order" ASC`

	rows, err := s.Query(ctx, query, category, category)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query job classes")
	}
	defer rows.Close()

	var classes []JobClass
	for rows.Next() {
		var j JobClass
		if err := rows.Scan(&j.ID, &j.Name, &j.Category, &j.Description, &j.ImageURL, &j.Order, &j.IsActive); err != nil {
			return nil, errors.Wrap(err, "failed to scan job class")
		}
		classes = append(classes, j)
	}
	return classes, errors.Wrap(rows.Err(), "error iterating rows")
}
