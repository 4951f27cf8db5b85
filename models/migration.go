package models

import (
	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/sirupsen/logrus"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&UserApp{}, &Pet{},
		&Reminder{},
		&DeliveryEventRecord{},
	)
	if err != nil {
		config.GetLogger().WithFields(logrus.Fields{
			"field": "migration",
		}).Panic(err.Error())
	}
}
