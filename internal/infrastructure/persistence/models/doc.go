// Package models contains GORM-specific persistence models that map to the
// MySQL tables created by the migrations. Domain entities stay free of ORM
// tags; each model converts with ToDomain and FromDomain.
//
//   - base.go: BaseModel, SoftDeleteModel and the shared line columns
//   - cliente.go: personas_terceros
//   - presupuesto.go, factura.go: documents and their items
//   - proyecto.go, certificado.go: projects and progress certificates
//   - prospecto.go, usuario.go: leads and back-office users
package models
