package model

// SharedModels returns the models whose tables live only in the public schema.
// These carry schema-qualified table names and are migrated once at startup.
func SharedModels() []interface{} {
	return []interface{}{
		&Organization{},
		&ReservedHandle{},
		&OTP{},
	}
}

// TenantModels returns the entity set replicated into every tenant schema,
// in dependency order so foreign keys can be created as tables appear.
// Association tables (user_categories, chat_tab_messages) are created by the
// migrator alongside their owning models.
func TenantModels() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&KnowledgeBase{},
		&VectorDocument{},
		&ChatTab{},
		&ChatMessage{},
		&AuditLog{},
	}
}
