package sqlstore

const insertPropertySQL = `
INSERT INTO properties
  (owner_id, title, status, listing_type, price, city, featured, payload, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updatePropertySQL = `
UPDATE properties SET
  title        = ?,
  status       = ?,
  listing_type = ?,
  price        = ?,
  city         = ?,
  featured     = ?,
  payload      = ?,
  updated_at   = ?
WHERE id = ?
`

// Owner name and rating summary come along so the detail page is one round trip.
const getPropertyDetailSQL = `
SELECT
  ` + propertyColumns + `,
  u.name,
  COALESCE((SELECT AVG(rv.rating) FROM reviews rv WHERE rv.property_id = p.id), 0),
  (SELECT COUNT(*) FROM reviews rv WHERE rv.property_id = p.id)
FROM properties p
JOIN users u ON u.id = p.owner_id
WHERE p.id = ?
`

const listLocationsSQL = `
SELECT city, COUNT(*) AS n
FROM properties
WHERE status = ?
GROUP BY city
ORDER BY n DESC, city ASC
`

const leadColumns = `l.id, l.property_id, p.title, l.user_id, l.name, l.email, l.phone, l.message, l.status, l.created_at, l.updated_at`

const listWishlistSQL = `
SELECT ` + propertyColumns + `, w.id, w.user_id, w.created_at
FROM wishlist w
JOIN properties p ON p.id = w.property_id
WHERE w.user_id = ?
ORDER BY w.created_at DESC, w.id DESC
`

const listReviewsSQL = `
SELECT rv.id, rv.property_id, rv.user_id, u.name, rv.rating, rv.comment, rv.created_at, rv.updated_at
FROM reviews rv
JOIN users u ON u.id = rv.user_id
WHERE rv.property_id = ?
ORDER BY rv.created_at DESC, rv.id DESC
`

const topViewedSQL = `
SELECT v.property_id, p.title, COUNT(*) AS n
FROM property_views v
JOIN properties p ON p.id = v.property_id
WHERE v.viewed_at >= ?
GROUP BY v.property_id, p.title
ORDER BY n DESC, v.property_id ASC
LIMIT ?
`
