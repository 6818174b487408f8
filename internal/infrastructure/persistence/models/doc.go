// Package models contains the GORM persistence models of the billing context.
// Domain types carry no ORM tags; repositories convert between the two with
// the FromDomain and ToDomain methods defined here.
package models
