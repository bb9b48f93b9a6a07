package mysql

import "strings"

// -----------------------------------------------------------------------------
// EVENTS
// -----------------------------------------------------------------------------

const getEventSQL = `SELECT id, title FROM events WHERE id = ?`

const listTrackGroupsSQL = `
SELECT id, title, position
FROM track_groups
WHERE event_id = ?
ORDER BY position, id
`

const listTracksSQL = `
SELECT id, title, code, track_group_id, position
FROM tracks
WHERE event_id = ?
ORDER BY position, id
`

const listQuestionsSQL = `
SELECT id, title, field_type, no_score, position, is_deleted
FROM abstract_review_questions
WHERE event_id = ?
ORDER BY position, id
`

const listFieldsSQL = `
SELECT id, title
FROM contribution_fields
WHERE event_id = ?
ORDER BY position, id
`

// -----------------------------------------------------------------------------
// ABSTRACTS
// -----------------------------------------------------------------------------

// The IN (...) lists are expanded with inPlaceholders.
const listAbstractsSQL = `
SELECT
  a.id,
  a.friendly_id,
  a.event_id,
  a.title,
  COALESCE(a.description, ''),
  a.state,
  TRIM(CONCAT(u.first_name, ' ', u.last_name)),
  a.accepted_track_id,
  a.submitted_contrib_type,
  a.accepted_contrib_type,
  a.submitted_dt,
  a.modified_dt
FROM abstracts a
JOIN users u ON u.id = a.submitter_id
WHERE a.event_id = ? AND a.is_deleted = FALSE`

const abstractsOrderSQL = " ORDER BY a.friendly_id"

const submittedTracksSQL = `
SELECT abstract_id, track_id
FROM abstract_submitted_tracks
WHERE abstract_id IN (%s)
ORDER BY abstract_id, track_id
`

const fieldValuesSQL = `
SELECT abstract_id, contribution_field_id, COALESCE(data, '')
FROM abstract_field_values
WHERE abstract_id IN (%s)
`

const personLinksSQL = `
SELECT id, abstract_id, full_name, email, author_type, is_speaker, display_order
FROM abstract_person_links
WHERE abstract_id IN (%s)
ORDER BY abstract_id, display_order, id
`

const personAffiliationsSQL = `
SELECT aa.person_link_id, f.id, f.name, f.street, f.city, f.postcode, f.country_code
FROM abstract_affiliations aa
JOIN affiliations f ON f.id = aa.affiliation_id
WHERE aa.person_link_id IN (%s)
ORDER BY aa.person_link_id, aa.display_order
`

const reviewsSQL = `
SELECT r.id, r.abstract_id, r.track_id, r.user_id, TRIM(CONCAT(u.first_name, ' ', u.last_name))
FROM abstract_reviews r
JOIN users u ON u.id = r.user_id
WHERE r.abstract_id IN (%s)
ORDER BY r.abstract_id, r.id
`

const ratingsSQL = `
SELECT rr.review_id, rr.question_id, rr.score, rr.answer
FROM abstract_review_ratings rr
JOIN abstract_reviews r ON r.id = rr.review_id
WHERE r.abstract_id IN (%s)
ORDER BY rr.review_id, rr.question_id
`

// -----------------------------------------------------------------------------
// AFFILIATIONS
// -----------------------------------------------------------------------------

const insertAffiliationSQL = `
INSERT INTO affiliations (name, street, city, postcode, country_code)
VALUES (?, ?, ?, ?, ?)
`

const existingAffiliationsSQL = `SELECT id FROM affiliations WHERE id IN (%s)`

const abstractLinkEventSQL = `
SELECT a.event_id
FROM abstract_person_links l
JOIN abstracts a ON a.id = l.abstract_id
WHERE l.id = ?
`

const contributionLinkEventSQL = `
SELECT c.event_id
FROM contribution_person_links l
JOIN contributions c ON c.id = l.contribution_id
WHERE l.id = ?
`

// Table names are fixed per person link kind, never user input.
const deleteLinkAffiliationsSQL = `DELETE FROM %s WHERE person_link_id = ?`

const insertLinkAffiliationsPrefix = "INSERT INTO %s (person_link_id, affiliation_id, display_order) VALUES "

// -----------------------------------------------------------------------------
// USERS
// -----------------------------------------------------------------------------

const userColumns = `u.id, u.email, u.first_name, u.last_name, u.affiliation, u.phone, COALESCE(u.address, ''), u.is_pending`

const getUserSQL = `SELECT ` + userColumns + ` FROM users u WHERE u.id = ? AND u.is_deleted = FALSE`

const usersByEmailSQL = `SELECT ` + userColumns + ` FROM users u WHERE u.is_deleted = FALSE AND LOWER(u.email) IN (%s)`

const insertPrincipalsPrefix = "INSERT IGNORE INTO event_principals (event_id, user_id, permission) VALUES "

const listPrincipalsSQL = `
SELECT ` + userColumns + `
FROM event_principals p
JOIN users u ON u.id = p.user_id
WHERE p.event_id = ? AND p.permission = ? AND u.is_deleted = FALSE
ORDER BY u.last_name, u.first_name, u.id
`

// -----------------------------------------------------------------------------
// PROFILE SYNC
// -----------------------------------------------------------------------------

const getSettingSQL = `SELECT value FROM plugin_settings WHERE plugin = 'jacow' AND name = ?`

const identityUsersSQL = `
SELECT ` + userColumns + `, i.provider, i.identifier, i.data
FROM users u
JOIN identities i ON i.user_id = u.id AND i.provider = ?
WHERE u.is_system = FALSE AND u.is_deleted = FALSE
ORDER BY u.id
`

const usersWithoutIdentitySQL = `
SELECT ` + userColumns + `
FROM users u
LEFT JOIN identities i ON i.user_id = u.id AND i.provider = ?
WHERE i.id IS NULL AND u.is_system = FALSE AND u.is_deleted = FALSE
ORDER BY u.id
`

// Empty directory values keep what is stored.
const updateProfileSQL = `
UPDATE users SET
  first_name  = COALESCE(NULLIF(?, ''), first_name),
  last_name   = COALESCE(NULLIF(?, ''), last_name),
  affiliation = COALESCE(NULLIF(?, ''), affiliation),
  phone       = COALESCE(NULLIF(?, ''), phone),
  address     = COALESCE(NULLIF(?, ''), address)
WHERE id = ?
`

const insertIdentitySQL = `
INSERT INTO identities (user_id, provider, identifier, data)
VALUES (?, ?, ?, ?)
`

const clearPendingSQL = `UPDATE users SET is_pending = FALSE WHERE id = ?`

// inPlaceholders returns "?,?,?" for n values.
func inPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
