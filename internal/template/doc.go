// Package template manages reusable task templates: labelled lists of task
// blueprints that can be saved, replaced and applied to create real tasks.
package template
