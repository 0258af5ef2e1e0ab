package sqlite

// Schema contains the complete DDL for the domguard tables. PAGE_TYPE is
// "Static" or "Dynamic"; PAGE_TOLERANCE is only meaningful for Dynamic rows.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id     INTEGER PRIMARY KEY AUTOINCREMENT,
    username    TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS contacts (
    contact_id  INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     INTEGER NOT NULL,
    channel     TEXT NOT NULL,
    address     TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_contacts_user ON contacts(user_id);

CREATE TABLE IF NOT EXISTS tracked_pages (
    page_id               INTEGER PRIMARY KEY AUTOINCREMENT,
    page_url              TEXT NOT NULL,
    owner_user_id         INTEGER NOT NULL,
    last_time_checked     INTEGER NOT NULL DEFAULT 0,
    last_time_indexed     INTEGER NOT NULL DEFAULT 0,
    index_interval        INTEGER NOT NULL DEFAULT 1800000,
    defacement_count      INTEGER NOT NULL DEFAULT 0,
    defacement_threshold  INTEGER NOT NULL DEFAULT 5,
    notified_of_current   INTEGER NOT NULL DEFAULT 0,
    page_type             TEXT NOT NULL DEFAULT 'Static',
    page_tolerance        REAL NOT NULL DEFAULT 0,
    FOREIGN KEY (owner_user_id) REFERENCES users(user_id) ON DELETE CASCADE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_url ON tracked_pages(page_url COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_pages_owner ON tracked_pages(owner_user_id);
CREATE INDEX IF NOT EXISTS idx_pages_checked ON tracked_pages(last_time_checked);
CREATE INDEX IF NOT EXISTS idx_pages_indexed ON tracked_pages(last_time_indexed);

CREATE TABLE IF NOT EXISTS stored_doms (
    dom_id      INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id     INTEGER NOT NULL,
    dom         TEXT NOT NULL,
    FOREIGN KEY (page_id) REFERENCES tracked_pages(page_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_doms_page ON stored_doms(page_id);
`
