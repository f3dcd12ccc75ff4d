package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "pbc_3142635491",
			"name": "registrations",
			"type": "base",
			"system": false,
			"listRule": "user = @request.auth.id",
			"viewRule": "user = @request.auth.id",
			"createRule": null,
			"updateRule": null,
			"deleteRule": null,
			"indexes": [
				"CREATE UNIQUE INDEX idx_registrations_user_event ON registrations (user, event)"
			],
			"fields": [
				{
					"id": "text3208210256",
					"name": "id",
					"type": "text",
					"system": true,
					"required": true,
					"primaryKey": true,
					"autogeneratePattern": "[a-z0-9]{15}",
					"pattern": "^[a-z0-9]+$",
					"min": 15,
					"max": 15,
					"presentable": false,
					"hidden": false
				},
				{
					"id": "relation2375276105",
					"name": "user",
					"type": "relation",
					"system": false,
					"required": true,
					"presentable": false,
					"hidden": false,
					"collectionId": "_pb_users_auth_",
					"cascadeDelete": true,
					"minSelect": 0,
					"maxSelect": 1
				},
				{
					"id": "relation1001261735",
					"name": "event",
					"type": "relation",
					"system": false,
					"required": true,
					"presentable": false,
					"hidden": false,
					"collectionId": "pbc_2602490748",
					"cascadeDelete": true,
					"minSelect": 0,
					"maxSelect": 1
				},
				{
					"id": "select2063623452",
					"name": "status",
					"type": "select",
					"system": false,
					"required": true,
					"presentable": false,
					"hidden": false,
					"maxSelect": 1,
					"values": ["registered", "payment_initiated", "confirmed", "cancelled"]
				},
				{
					"id": "bool3814588639",
					"name": "checked_in",
					"type": "bool",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false
				},
				{
					"id": "date1594638462",
					"name": "checked_in_at",
					"type": "date",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": "",
					"max": ""
				},
				{
					"id": "autodate2990389176",
					"name": "created",
					"type": "autodate",
					"system": false,
					"presentable": false,
					"hidden": false,
					"onCreate": true,
					"onUpdate": false
				},
				{
					"id": "autodate3332085495",
					"name": "updated",
					"type": "autodate",
					"system": false,
					"presentable": false,
					"hidden": false,
					"onCreate": true,
					"onUpdate": true
				}
			]
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pbc_3142635491")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
