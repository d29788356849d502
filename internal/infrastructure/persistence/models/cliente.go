package models

import (
	"github.com/sgi/backend/internal/domain/cliente"
)

// ClienteModel is the persistence model for the Cliente domain entity.
// Clientes share the personas_terceros table with suppliers.
type ClienteModel struct {
	SoftDeleteModel
	Kind          cliente.Kind         `gorm:"type:varchar(20);not null"`
	Role          cliente.Role         `gorm:"type:varchar(20);not null;index"`
	Name          string               `gorm:"type:varchar(200);not null;index"`
	TradeName     string               `gorm:"type:varchar(200)"`
	CUIT          *string              `gorm:"column:cuit;type:char(11);index"`
	DNI           string               `gorm:"column:dni;type:varchar(8)"`
	IVACondition  cliente.IVACondition `gorm:"column:iva_condition;type:varchar(30);not null"`
	Email         string               `gorm:"type:varchar(200)"`
	Phone         string               `gorm:"type:varchar(50)"`
	Address       string               `gorm:"type:varchar(255)"`
	City          string               `gorm:"type:varchar(100)"`
	Province      string               `gorm:"type:varchar(100);index"`
	PostalCode    string               `gorm:"type:varchar(20)"`
	ContactPerson string               `gorm:"type:varchar(200)"`
	Notes         string               `gorm:"type:text"`
	Status        cliente.Status       `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (ClienteModel) TableName() string {
	return "personas_terceros"
}

// ToDomain converts the persistence model to a domain Cliente entity.
func (m *ClienteModel) ToDomain() *cliente.Cliente {
	c := &cliente.Cliente{
		BaseEntity:    m.BaseModel.ToDomain(),
		Kind:          m.Kind,
		Role:          m.Role,
		Name:          m.Name,
		TradeName:     m.TradeName,
		DNI:           m.DNI,
		IVACondition:  m.IVACondition,
		Email:         m.Email,
		Phone:         m.Phone,
		Address:       m.Address,
		City:          m.City,
		Province:      m.Province,
		PostalCode:    m.PostalCode,
		ContactPerson: m.ContactPerson,
		Notes:         m.Notes,
		Status:        m.Status,
	}
	if m.CUIT != nil {
		c.CUIT = *m.CUIT
	}
	return c
}

// FromDomain populates the persistence model from a domain Cliente entity.
// An empty CUIT is stored as NULL.
func (m *ClienteModel) FromDomain(c *cliente.Cliente) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Kind = c.Kind
	m.Role = c.Role
	m.Name = c.Name
	m.TradeName = c.TradeName
	m.CUIT = nil
	if c.CUIT != "" {
		cuit := c.CUIT
		m.CUIT = &cuit
	}
	m.DNI = c.DNI
	m.IVACondition = c.IVACondition
	m.Email = c.Email
	m.Phone = c.Phone
	m.Address = c.Address
	m.City = c.City
	m.Province = c.Province
	m.PostalCode = c.PostalCode
	m.ContactPerson = c.ContactPerson
	m.Notes = c.Notes
	m.Status = c.Status
}

// ClienteModelFromDomain creates a new persistence model from a domain Cliente entity.
func ClienteModelFromDomain(c *cliente.Cliente) *ClienteModel {
	m := &ClienteModel{}
	m.FromDomain(c)
	return m
}
