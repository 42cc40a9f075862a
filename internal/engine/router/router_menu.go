// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package router

import (
	"github.com/gofiber/fiber/v2"
)

func (rt *Router) menuRouter(r fiber.Router) {
	menuGroup := r.Group("/menus")
	{
		menuGroup.Get("/tree", rt.Menu.GetTree)           // GET /menus/tree - flat preorder listing, rebuilt first
		menuGroup.Get("/hierarchy", rt.Menu.GetHierarchy) // GET /menus/hierarchy?activeOnly=&codes= - nested view
		menuGroup.Get("/routes", rt.Menu.GetRoutes)       // GET /menus/routes?activeOnly=&codes= - navigable routes
		menuGroup.Get("/verify", rt.Menu.Verify)          // GET /menus/verify - check stored coordinates
		menuGroup.Post("/", rt.Menu.Create)               // POST /menus - create a node
		menuGroup.Post("/rebuild", rt.Menu.Rebuild)       // POST /menus/rebuild - recompute lft/rght

		menuGroup.Put("/:id", rt.Menu.Update)                      // PUT /menus/:id - partial update
		menuGroup.Delete("/:id", rt.Menu.Delete)                   // DELETE /menus/:id - delete a leaf
		menuGroup.Post("/:id/move-up", rt.Menu.MoveUp)             // POST /menus/:id/move-up - swap with previous sibling
		menuGroup.Post("/:id/move-down", rt.Menu.MoveDown)         // POST /menus/:id/move-down - swap with next sibling
		menuGroup.Put("/:id/parent", rt.Menu.ChangeParent)         // PUT /menus/:id/parent - reparent, placed last
		menuGroup.Get("/:id/descendants", rt.Menu.GetDescendants) // GET /menus/:id/descendants - subtree in lft order
		menuGroup.Get("/:id/ancestors", rt.Menu.GetAncestors)     // GET /menus/:id/ancestors - root first
		menuGroup.Get("/:id/depth", rt.Menu.GetDepth)             // GET /menus/:id/depth - number of ancestors
	}
}
