// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Each model has ToDomain / FromDomain mappers. Structured values (inspection
// images, product specifications, defect measurements) are stored as JSON in
// jsonb columns and encoded by the mappers.
//
// Tables: users, products, inspections, defects, alerts. The schema is owned
// by migrations/*.sql; AutoMigrate is only used by tests.
package models
